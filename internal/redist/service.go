package redist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wbredist/wb-redist-bot/internal/crypto"
	"github.com/wbredist/wb-redist-bot/internal/ctxutil"
	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/metrics"
	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/wbapi"
)

// Draft — незавершённая заявка, которую собирает мастер перемещения.
type Draft struct {
	Sku                 string
	NmID                int64
	ProductName         string
	SourceWarehouseID   int64
	SourceWarehouseName string
	TargetWarehouseID   int64
	TargetWarehouseName string
	Quantity            int
	Available           int // остаток на источнике на момент выбора
	Barcode             string
}

// Ready — заполнены все поля, необходимые для подтверждения.
func (d *Draft) Ready() bool {
	return d.Sku != "" && d.SourceWarehouseID != 0 && d.TargetWarehouseID != 0 && d.Quantity > 0
}

// Result — итог подтверждения заявки.
type Result struct {
	RequestID int64
	SupplyID  string
	Status    models.RequestStatus
}

// Service — доменная логика перемещения остатков: чтение стоков,
// валидация количества, создание заявок и поставок.
type Service struct {
	db            *sql.DB
	box           *crypto.Box
	apiCfg        wbapi.Config
	submitTimeout time.Duration
	log           *zap.SugaredLogger

	mu      sync.Mutex
	clients map[int64]*wbapi.Client // по id токена
}

func NewService(database *sql.DB, box *crypto.Box, apiCfg wbapi.Config, submitTimeout time.Duration, log *zap.SugaredLogger) *Service {
	if submitTimeout == 0 {
		submitTimeout = 30 * time.Second
	}
	return &Service{
		db:            database,
		box:           box,
		apiCfg:        apiCfg,
		submitTimeout: submitTimeout,
		log:           log,
		clients:       make(map[int64]*wbapi.Client),
	}
}

// SupplierFor — кабинет по умолчанию пользователя с расшифрованным токеном.
func (s *Service) SupplierFor(ctx context.Context, userID int64) (*models.SupplierContext, error) {
	suppliers, err := db.ListSuppliers(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if len(suppliers) == 0 {
		return nil, ErrNoSupplier
	}
	sup := suppliers[0] // ListSuppliers отдаёт кабинет по умолчанию первым

	tok, err := db.GetTokenByID(ctx, s.db, sup.TokenID)
	if err != nil {
		return nil, err
	}
	if tok == nil || !tok.IsActive {
		return nil, ErrNoSupplier
	}
	plain, err := s.box.Decrypt(tok.EncryptedToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt token %d: %w", tok.ID, err)
	}
	if err := db.TouchToken(ctx, s.db, tok.ID); err != nil {
		s.log.Warnw("touch token", "token_id", tok.ID, "err", err)
	}
	return &models.SupplierContext{
		SupplierID:   sup.ID,
		SupplierName: sup.Name,
		APIToken:     plain,
	}, nil
}

// clientFor — WB клиент кабинета; кэшируется, чтобы rate limiter
// жил дольше одного шага мастера.
func (s *Service) clientFor(sc *models.SupplierContext) *wbapi.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[sc.SupplierID]; ok {
		return c
	}
	c := wbapi.NewClient(s.apiCfg, sc.APIToken)
	s.clients[sc.SupplierID] = c
	return c
}

// DropClient сбрасывает кэшированный клиент (например, после смены токена).
func (s *Service) DropClient(supplierID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, supplierID)
}

// ValidateToken проверяет токен обращением к WB перед сохранением.
// Отклоняем только явный отказ в авторизации: недоступность WB —
// не повод терять токен.
func (s *Service) ValidateToken(ctx context.Context, token string) error {
	err := wbapi.NewClient(s.apiCfg, token).Ping(ctx)
	if wbapi.IsKind(err, wbapi.KindAuth) {
		return err
	}
	return nil
}

// StockSummaries — сводка остатков по артикулам, убывание по общему количеству.
func (s *Service) StockSummaries(ctx context.Context, userID int64) ([]*models.SkuStockSummary, error) {
	sc, err := s.SupplierFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	grouped, err := s.clientFor(sc).StocksGroupedBySku(ctx)
	if err != nil {
		return nil, wrapUpstream(err)
	}

	out := make([]*models.SkuStockSummary, 0, len(grouped))
	for _, g := range grouped {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].Sku < out[j].Sku
	})
	return out, nil
}

// StocksForSku — остатки артикула по складам; ErrNotFound, если артикул исчез.
func (s *Service) StocksForSku(ctx context.Context, userID int64, sku string) ([]models.StockItem, error) {
	sc, err := s.SupplierFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.clientFor(sc).StocksForSku(ctx, sku)
	if err != nil {
		return nil, wrapUpstream(err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items, nil
}

// AvailableQuantity — свежий доступный остаток артикула на складе-источнике.
func (s *Service) AvailableQuantity(ctx context.Context, userID int64, sku string, warehouseID int64) (int, error) {
	items, err := s.StocksForSku(ctx, userID, sku)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if it.WarehouseID == warehouseID {
			return it.Available(), nil
		}
	}
	return 0, ErrNotFound
}

// Submit подтверждает заявку: перепроверяет остаток, пытается сразу создать
// поставку (если на складе назначения открыта приёмка), иначе ставит заявку
// в очередь фонового поиска слота. Запись в БД делается в любом случае,
// даже если пользователь успел отменить сессию.
func (s *Service) Submit(ctx context.Context, userID int64, d *Draft) (*Result, error) {
	if !d.Ready() {
		return nil, fmt.Errorf("draft is incomplete")
	}
	sc, err := s.SupplierFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	client := s.clientFor(sc)

	subCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	// Свежий снимок остатка: заодно добираем штрихкод и название,
	// если заявка пришла без них (Mini App шлёт только id).
	items, err := s.StocksForSku(subCtx, userID, d.Sku)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrExhausted
		}
		return nil, err
	}
	avail := 0
	for _, it := range items {
		if it.WarehouseID == d.SourceWarehouseID {
			avail = it.Available()
			if d.Barcode == "" {
				d.Barcode = it.Barcode
			}
			if d.ProductName == "" {
				d.ProductName = it.ProductName
			}
			if d.NmID == 0 {
				d.NmID = it.NmID
			}
			break
		}
	}
	if avail <= 0 {
		return nil, ErrExhausted
	}
	if d.Quantity > avail {
		return nil, &InsufficientStockError{Available: avail}
	}

	req := &models.RedistributionRequest{
		UserID:              userID,
		SupplierID:          sc.SupplierID,
		Sku:                 d.Sku,
		NmID:                d.NmID,
		ProductName:         d.ProductName,
		SourceWarehouseID:   d.SourceWarehouseID,
		SourceWarehouseName: d.SourceWarehouseName,
		TargetWarehouseID:   d.TargetWarehouseID,
		TargetWarehouseName: d.TargetWarehouseName,
		Quantity:            d.Quantity,
		Status:              models.StatusPending,
	}

	coefs, err := client.AcceptanceCoefficients(subCtx, []int64{d.TargetWarehouseID})
	if err != nil {
		// Не узнали про слот — заявку всё равно сохраняем, слот найдёт фон.
		s.log.Warnw("acceptance coefficients", "warehouse", d.TargetWarehouseID, "err", err)
		return s.record(ctx, req, timedOut(err))
	}
	if _, open := wbapi.FreeSlot(coefs, d.TargetWarehouseID); !open {
		return s.record(ctx, req, false)
	}

	supplyID, err := client.CreateSupply(subCtx, d.Sku, d.TargetWarehouseID, d.TargetWarehouseName,
		[]wbapi.SupplyItem{{Barcode: d.Barcode, Quantity: d.Quantity}})
	if err != nil {
		if timedOut(err) {
			return s.record(ctx, req, true)
		}
		var apiErr *wbapi.APIError
		if errors.As(err, &apiErr) && apiErr.Kind == wbapi.KindValidation {
			// WB отклонил позиции — остаток разошёлся с нашим снимком.
			fresh, ferr := s.AvailableQuantity(ctx, userID, d.Sku, d.SourceWarehouseID)
			if ferr == nil && fresh < d.Quantity {
				return nil, &InsufficientStockError{Available: fresh}
			}
		}
		metrics.Submissions.WithLabelValues("failed").Inc()
		return nil, wrapUpstream(err)
	}

	now := time.Now()
	req.Status = models.StatusCompleted
	req.SupplyID = &supplyID
	req.CompletedAt = &now
	return s.record(ctx, req, false)
}

// record сохраняет заявку вне жизненного цикла сессии пользователя:
// отмена мастера во время отправки не должна потерять результат.
func (s *Service) record(ctx context.Context, req *models.RedistributionRequest, unknown bool) (*Result, error) {
	if unknown {
		req.Status = models.StatusSearching
	}
	dbCtx, cancel := ctxutil.WithDBTimeout(context.WithoutCancel(ctx))
	defer cancel()

	id, err := db.AddRequest(dbCtx, s.db, req)
	if err != nil {
		metrics.Submissions.WithLabelValues("failed").Inc()
		return nil, err
	}
	res := &Result{RequestID: id, Status: req.Status}
	if req.SupplyID != nil {
		res.SupplyID = *req.SupplyID
	}
	metrics.Submissions.WithLabelValues(string(req.Status)).Inc()
	if unknown {
		return res, fmt.Errorf("request %d: %w", id, ErrUnknownOutcome)
	}
	return res, nil
}

// reconcileWindow — допуск на рассинхрон часов при сверке времени
// создания поставки с временем заявки.
const reconcileWindow = 5 * time.Minute

// findExistingSupply ищет среди поставок кабинета уже созданную поставку
// заявки: совпадает детерминированное имя, а время создания не раньше
// самой заявки.
func findExistingSupply(supplies []wbapi.Supply, name string, since time.Time) (string, bool) {
	for _, sp := range supplies {
		if sp.Name == name && !sp.CreatedAt.Before(since.Add(-reconcileWindow)) {
			return sp.ID, true
		}
	}
	return "", false
}

// FulfillRequest — досведение ожидающей заявки фоновым поиском слота:
// если на складе назначения открыта бесплатная приёмка, создаёт поставку
// и помечает заявку выполненной. Возвращает id созданной поставки.
func (s *Service) FulfillRequest(ctx context.Context, req *models.RedistributionRequest) (string, error) {
	sc, err := s.SupplierFor(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	client := s.clientFor(sc)

	// Статус searching значит, что отправка могла дойти до WB, но ответ
	// не вернулся. Сначала сверяемся со списком поставок: повторный
	// CreateSupply без сверки создал бы дубль перемещения. Пока список
	// недоступен, заявку не пересоздаём.
	if req.Status == models.StatusSearching {
		supplies, err := client.Supplies(ctx, 100)
		if err != nil {
			return "", wrapUpstream(err)
		}
		name := wbapi.SupplyName(req.Sku, req.TargetWarehouseName)
		if supplyID, ok := findExistingSupply(supplies, name, req.CreatedAt); ok {
			return s.complete(ctx, req.ID, supplyID)
		}
	}

	coefs, err := client.AcceptanceCoefficients(ctx, []int64{req.TargetWarehouseID})
	if err != nil {
		return "", wrapUpstream(err)
	}
	if _, open := wbapi.FreeSlot(coefs, req.TargetWarehouseID); !open {
		return "", fmt.Errorf("warehouse %d: no free acceptance slot", req.TargetWarehouseID)
	}

	items, err := s.StocksForSku(ctx, req.UserID, req.Sku)
	if err != nil {
		return "", err
	}
	barcode := ""
	for _, it := range items {
		if it.WarehouseID == req.SourceWarehouseID {
			barcode = it.Barcode
			break
		}
	}
	if barcode == "" {
		return "", ErrExhausted
	}

	supplyID, err := client.CreateSupply(ctx, req.Sku, req.TargetWarehouseID, req.TargetWarehouseName,
		[]wbapi.SupplyItem{{Barcode: barcode, Quantity: req.Quantity}})
	if err != nil {
		return "", wrapUpstream(err)
	}
	return s.complete(ctx, req.ID, supplyID)
}

func (s *Service) complete(ctx context.Context, reqID int64, supplyID string) (string, error) {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	if err := db.CompleteRequest(dbCtx, s.db, reqID, supplyID); err != nil {
		s.log.Errorw("complete request", "request", reqID, "supply", supplyID, "err", err)
		return supplyID, err
	}
	metrics.Submissions.WithLabelValues(string(models.StatusCompleted)).Inc()
	return supplyID, nil
}

// RefreshWarehouses обновляет кэш реестра складов. Реестр общий для всех
// поставщиков, поэтому достаточно любого активного токена.
func (s *Service) RefreshWarehouses(ctx context.Context) error {
	tok, err := db.AnyActiveToken(ctx, s.db)
	if err != nil {
		return err
	}
	if tok == nil {
		return nil // токенов ещё нет, обновлять нечем
	}
	plain, err := s.box.Decrypt(tok.EncryptedToken)
	if err != nil {
		return fmt.Errorf("decrypt token %d: %w", tok.ID, err)
	}

	warehouses, err := wbapi.NewClient(s.apiCfg, plain).Warehouses(ctx)
	if err != nil {
		return wrapUpstream(err)
	}
	if len(warehouses) == 0 {
		return nil
	}

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.UpsertWarehouses(dbCtx, s.db, warehouses)
}

// TargetWarehouses — склады, куда можно перемещать: кэш реестра,
// при пустом кэше — известные склады.
func (s *Service) TargetWarehouses(ctx context.Context) []models.Warehouse {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	if rows, err := db.ListWarehouses(dbCtx, s.db); err == nil && len(rows) > 0 {
		return rows
	}
	out := make([]models.Warehouse, 0, len(wbapi.PopularWarehouses))
	for _, w := range wbapi.PopularWarehouses {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WarehouseName — имя склада: кэш реестра, затем известные склады, затем id.
func (s *Service) WarehouseName(ctx context.Context, warehouseID int64) string {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	if rows, err := db.ListWarehouses(dbCtx, s.db); err == nil {
		for _, w := range rows {
			if w.ID == warehouseID {
				return w.Name
			}
		}
	}
	if w, ok := wbapi.PopularWarehouses[warehouseID]; ok {
		return w.Name
	}
	return fmt.Sprintf("Склад %d", warehouseID)
}

// WarehouseRegion — регион склада из известных складов; "" если неизвестен.
func (s *Service) WarehouseRegion(warehouseID int64) string {
	if w, ok := wbapi.PopularWarehouses[warehouseID]; ok {
		return w.Region
	}
	return ""
}

// timedOut отличает «исход неизвестен» от явного отказа WB: таймаут,
// отмена контекста и сетевые ошибки могли застать запрос уже принятым.
func timedOut(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *wbapi.APIError
	return errors.As(err, &apiErr) && apiErr.Kind == wbapi.KindNetwork
}

func wrapUpstream(err error) error {
	var apiErr *wbapi.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrUpstream, apiErr.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

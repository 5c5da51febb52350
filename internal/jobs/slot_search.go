package jobs

import (
	"context"
	"database/sql"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/redist"
	"github.com/wbredist/wb-redist-bot/internal/tg"
)

const slotSearchBatch = 20

// SlotSearcher — фоновый поиск свободной приёмки для ожидающих заявок.
// Как только на складе назначения открывается бесплатный слот,
// создаёт поставку и уведомляет пользователя.
type SlotSearcher struct {
	db  *sql.DB
	svc *redist.Service
	bot *tgbotapi.BotAPI
	log *zap.SugaredLogger
}

func NewSlotSearcher(database *sql.DB, svc *redist.Service, bot *tgbotapi.BotAPI, log *zap.SugaredLogger) *SlotSearcher {
	return &SlotSearcher{db: database, svc: svc, bot: bot, log: log}
}

func (s *SlotSearcher) Run(ctx context.Context) error {
	pending, err := db.ListRequestsByStatus(ctx, s.db, models.StatusPending, slotSearchBatch)
	if err != nil {
		return err
	}
	// Заявки со статусом searching — оборванные отправки: их тоже досводим.
	searching, err := db.ListRequestsByStatus(ctx, s.db, models.StatusSearching, slotSearchBatch)
	if err != nil {
		return err
	}

	for i := range pending {
		req := &pending[i]
		// pending → searching атомарно, чтобы два тика не взяли одну заявку.
		ok, err := db.MarkRequestSearching(ctx, s.db, req.ID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		s.process(ctx, req)
	}
	for i := range searching {
		s.process(ctx, &searching[i])
	}
	return nil
}

func (s *SlotSearcher) process(ctx context.Context, req *models.RedistributionRequest) {
	supplyID, err := s.svc.FulfillRequest(ctx, req)
	if err != nil {
		// Слот не нашёлся или WB недоступен — попробуем на следующем тике.
		s.log.Debugw("slot search", "request", req.ID, "err", err)
		return
	}

	text := fmt.Sprintf("✅ По заявке №%d создана поставка!\n\n%s → %s, %d шт.\nНомер поставки: %s",
		req.ID, req.SourceWarehouseName, req.TargetWarehouseName, req.Quantity, supplyID)
	if _, err := tg.Send(s.bot, tgbotapi.NewMessage(req.UserID, text)); err != nil {
		s.log.Warnw("notify user", "request", req.ID, "err", err)
	}
}

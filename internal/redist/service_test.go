//go:build testutil
// +build testutil

package redist_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wbredist/wb-redist-bot/internal/crypto"
	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/redist"
	"github.com/wbredist/wb-redist-bot/internal/testutil/testdb"
	"github.com/wbredist/wb-redist-bot/internal/wbapi"
)

const sellerID int64 = 200600

// wbStub — поведение фейкового WB API для одного сценария.
type wbStub struct {
	available   int           // остаток ART-001 на Коледино
	freeSlot    bool          // открыта ли бесплатная приёмка на складе 686
	supplyDelay time.Duration // задержка создания поставки
	supplies    string        // JSON списка поставок кабинета
	created     int32         // сколько раз WB принял создание поставки
}

func newWBServer(t *testing.T, st *wbStub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v1/supplier/stocks":
			fmt.Fprintf(w, `[{"supplierArticle":"ART-001","barcode":"4600000000017","nmId":123456,
				"warehouseId":117501,"warehouseName":"Коледино","quantity":%d,
				"inWayToClient":0,"inWayFromClient":0,"subject":"Футболки"}]`, st.available)
		case r.URL.Path == "/api/v1/acceptance/coefficients":
			coef := -1
			if st.freeSlot {
				coef = 0
			}
			fmt.Fprintf(w, `[{"date":"2026-09-01T00:00:00Z","warehouseID":686,
				"warehouseName":"Новосибирск","coefficient":%d,"boxTypeID":2}]`, coef)
		case r.URL.Path == "/api/v1/supplies" && r.Method == http.MethodPost:
			atomic.AddInt32(&st.created, 1)
			if st.supplyDelay > 0 {
				time.Sleep(st.supplyDelay)
			}
			fmt.Fprint(w, `{"id":"WB-GI-777"}`)
		case r.URL.Path == "/api/v1/supplies":
			if st.supplies == "" {
				st.supplies = `{"supplies":[]}`
			}
			fmt.Fprint(w, st.supplies)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func seedSeller(ctx context.Context, t *testing.T, database *sql.DB, box *crypto.Box) {
	t.Helper()
	if err := db.UpsertUser(ctx, database, sellerID, "seller", "Анна"); err != nil {
		t.Fatal(err)
	}
	enc, err := box.Encrypt("wb-integration-token")
	if err != nil {
		t.Fatal(err)
	}
	tokenID, err := db.AddToken(ctx, database, sellerID, "Основной", enc)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddSupplier(ctx, database, sellerID, "Основной", tokenID); err != nil {
		t.Fatal(err)
	}
}

func newTestService(t *testing.T, database *sql.DB, box *crypto.Box, baseURL string) *redist.Service {
	t.Helper()
	return redist.NewService(database, box, wbapi.Config{
		CommonURL:     baseURL,
		SuppliesURL:   baseURL,
		StatisticsURL: baseURL,
		Timeout:       5 * time.Second,
	}, 5*time.Second, zap.NewNop().Sugar())
}

func testDraft() *redist.Draft {
	return &redist.Draft{
		Sku:                 "ART-001",
		SourceWarehouseID:   117501,
		SourceWarehouseName: "Коледино",
		TargetWarehouseID:   686,
		TargetWarehouseName: "Новосибирск",
		Quantity:            10,
	}
}

func TestSubmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	box, err := crypto.New(strings.Repeat("0123456789abcdef", 2))
	if err != nil {
		t.Fatal(err)
	}
	seedSeller(ctx, t, h.DB, box)

	t.Run("insufficient_stock_returns_fresh_available", func(t *testing.T) {
		st := &wbStub{available: 5, freeSlot: true}
		svc := newTestService(t, h.DB, box, newWBServer(t, st).URL)

		_, err := svc.Submit(ctx, sellerID, testDraft())
		var insufficient *redist.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("ожидали нехватку остатка, получили %v", err)
		}
		if insufficient.Available != 5 {
			t.Fatalf("доступный остаток из свежего снимка: %d", insufficient.Available)
		}
		if atomic.LoadInt32(&st.created) != 0 {
			t.Fatal("поставка не должна создаваться при нехватке остатка")
		}
	})

	t.Run("free_slot_creates_supply", func(t *testing.T) {
		st := &wbStub{available: 50, freeSlot: true}
		svc := newTestService(t, h.DB, box, newWBServer(t, st).URL)

		res, err := svc.Submit(ctx, sellerID, testDraft())
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if res.Status != models.StatusCompleted || res.SupplyID != "WB-GI-777" {
			t.Fatalf("итог: %+v", res)
		}
		req, err := db.GetRequest(ctx, h.DB, res.RequestID)
		if err != nil || req == nil {
			t.Fatalf("заявка не записана: %v", err)
		}
		if req.Status != models.StatusCompleted || req.SupplyID == nil || *req.SupplyID != "WB-GI-777" {
			t.Fatalf("заявка в базе: %+v", req)
		}
	})

	t.Run("no_slot_queues_request", func(t *testing.T) {
		st := &wbStub{available: 50, freeSlot: false}
		svc := newTestService(t, h.DB, box, newWBServer(t, st).URL)

		res, err := svc.Submit(ctx, sellerID, testDraft())
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if res.Status != models.StatusPending {
			t.Fatalf("без слота заявка уходит в очередь: %+v", res)
		}
		if atomic.LoadInt32(&st.created) != 0 {
			t.Fatal("без слота поставка не создаётся")
		}
	})

	t.Run("unknown_outcome_recorded_despite_cancel", func(t *testing.T) {
		st := &wbStub{available: 50, freeSlot: true, supplyDelay: 500 * time.Millisecond}
		svc := newTestService(t, h.DB, box, newWBServer(t, st).URL)

		// Пользователь рвёт сессию, пока WB держит создание поставки:
		// исход неизвестен, заявка обязана появиться в базе как searching.
		subCtx, subCancel := context.WithCancel(ctx)
		time.AfterFunc(100*time.Millisecond, subCancel)
		defer subCancel()

		res, err := svc.Submit(subCtx, sellerID, testDraft())
		if !errors.Is(err, redist.ErrUnknownOutcome) {
			t.Fatalf("ожидали неизвестный исход, получили %v", err)
		}
		if res == nil || res.RequestID == 0 {
			t.Fatalf("итог без id заявки: %+v", res)
		}
		req, err := db.GetRequest(ctx, h.DB, res.RequestID)
		if err != nil || req == nil {
			t.Fatalf("заявка не записана: %v", err)
		}
		if req.Status != models.StatusSearching {
			t.Fatalf("статус заявки: %s", req.Status)
		}
	})
}

func TestFulfillRequest_ReconcilesBeforeResubmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	box, err := crypto.New(strings.Repeat("0123456789abcdef", 2))
	if err != nil {
		t.Fatal(err)
	}
	seedSeller(ctx, t, h.DB, box)

	suppliers, err := db.ListSuppliers(ctx, h.DB, sellerID)
	if err != nil || len(suppliers) == 0 {
		t.Fatalf("кабинет не найден: %v", err)
	}
	reqID, err := db.AddRequest(ctx, h.DB, &models.RedistributionRequest{
		UserID:              sellerID,
		SupplierID:          suppliers[0].ID,
		Sku:                 "ART-001",
		NmID:                123456,
		SourceWarehouseID:   117501,
		TargetWarehouseID:   686,
		TargetWarehouseName: "Новосибирск",
		Quantity:            10,
		Status:              models.StatusSearching,
	})
	if err != nil {
		t.Fatal(err)
	}
	req, err := db.GetRequest(ctx, h.DB, reqID)
	if err != nil || req == nil {
		t.Fatalf("заявка не прочиталась: %v", err)
	}

	// WB уже принял поставку в прошлый раз: она есть в списке под
	// детерминированным именем заявки.
	st := &wbStub{available: 50, freeSlot: true}
	st.supplies = fmt.Sprintf(`{"supplies":[{"id":"WB-GI-EXISTING","name":%q,
		"warehouseId":686,"status":1,"createdAt":%q}]}`,
		wbapi.SupplyName("ART-001", "Новосибирск"), time.Now().UTC().Format(time.RFC3339))
	svc := newTestService(t, h.DB, box, newWBServer(t, st).URL)

	supplyID, err := svc.FulfillRequest(ctx, req)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if supplyID != "WB-GI-EXISTING" {
		t.Fatalf("должна подхватиться уже созданная поставка, получили %q", supplyID)
	}
	if atomic.LoadInt32(&st.created) != 0 {
		t.Fatal("повторная поставка — дубль перемещения, создаваться не должна")
	}

	got, err := db.GetRequest(ctx, h.DB, reqID)
	if err != nil || got == nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusCompleted || got.SupplyID == nil || *got.SupplyID != "WB-GI-EXISTING" {
		t.Fatalf("заявка после сверки: %+v", got)
	}
}

package wbapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		CommonURL:     srv.URL,
		SuppliesURL:   srv.URL,
		StatisticsURL: srv.URL,
		Timeout:       5 * time.Second,
	}, "test-token")
}

func TestClient_AuthHeaderAndDecode(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-token" {
			t.Errorf("Authorization: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ID": 507, "name": "Подольск"}]`))
	})

	warehouses, err := c.Warehouses(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(warehouses) != 1 || warehouses[0].ID != 507 || warehouses[0].Name != "Подольск" {
		t.Fatalf("склады: %+v", warehouses)
	}
	// 507 есть в реестре известных складов — регион должен подтянуться.
	if warehouses[0].Region == "" {
		t.Fatal("ожидали регион для известного склада")
	}
}

func TestClient_AuthErrorNotRetried(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	_, err := c.Warehouses(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindAuth {
		t.Fatalf("ожидали ошибку авторизации, получили %v", err)
	}
	if calls != 1 {
		t.Fatalf("ошибка авторизации не должна ретраиться: %d вызовов", calls)
	}
}

func TestClient_RateLimitCarriesRetryAfter(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := c.AllStocks(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindRateLimit {
		t.Fatalf("ожидали rate_limit, получили %v", err)
	}
	if apiErr.RetryAfter != 7 {
		t.Fatalf("Retry-After: %d", apiErr.RetryAfter)
	}
}

func TestClient_SuppliesList(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/supplies" {
			t.Errorf("путь: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"supplies":[
			{"id":"WB-GI-123","name":"Перемещение ART-001 → Казань","warehouseId":686,"status":1,"createdAt":"2026-08-30T10:00:00Z"}
		]}`))
	})

	supplies, err := c.Supplies(context.Background(), 50)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(supplies) != 1 {
		t.Fatalf("поставки: %+v", supplies)
	}
	sp := supplies[0]
	if sp.ID != "WB-GI-123" || sp.WarehouseID != 686 || sp.Name != SupplyName("ART-001", "Казань") {
		t.Fatalf("поставка: %+v", sp)
	}
	if sp.CreatedAt.IsZero() {
		t.Fatal("createdAt не распарсился")
	}
}

func TestClient_Ping(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ping" {
				t.Errorf("путь: %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusOK)
		})
		if err := c.Ping(context.Background()); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	})

	t.Run("bad_token", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
		err := c.Ping(context.Background())
		if !IsKind(err, KindAuth) {
			t.Fatalf("ожидали ошибку авторизации, получили %v", err)
		}
	})
}

func TestTokenBucket(t *testing.T) {
	t.Run("burst_within_safe_capacity", func(t *testing.T) {
		b := newTokenBucket(60) // 80% запас → 48 токенов
		for i := 0; i < 48; i++ {
			if wait := b.reserve(); wait != 0 {
				t.Fatalf("запрос %d не должен ждать, wait=%v", i, wait)
			}
		}
		if wait := b.reserve(); wait <= 0 {
			t.Fatal("после исчерпания берста должен появиться интервал ожидания")
		}
	})

	t.Run("tight_limit", func(t *testing.T) {
		b := newTokenBucket(6) // коэффициенты: 4.8 токена
		free := 0
		for i := 0; i < 5; i++ {
			if b.reserve() == 0 {
				free++
			}
		}
		if free != 4 {
			t.Fatalf("при лимите 6/мин без ожидания должно пройти 4 запроса, прошло %d", free)
		}
	})
}

func TestFilterSummaries(t *testing.T) {
	all := []*models.SkuStockSummary{
		{Sku: "ART-001", ProductName: "Носки"},
		{Sku: "ART-002", ProductName: "Футболка"},
	}

	if got := FilterSummaries(all, "носки"); len(got) != 1 {
		t.Fatalf("поиск по названию: %+v", got)
	}
	if got := FilterSummaries(all, "art-0"); len(got) != 2 {
		t.Fatalf("поиск по артикулу без регистра: %+v", got)
	}
	if got := FilterSummaries(all, ""); len(got) != len(all) {
		t.Fatal("пустой запрос возвращает всё")
	}
	if got := FilterSummaries(all, "нет такого"); len(got) != 0 {
		t.Fatalf("мимо: %+v", got)
	}
}

func TestFreeSlot(t *testing.T) {
	coefs := []AcceptanceCoefficient{
		{WarehouseID: 507, BoxTypeID: 2, Coefficient: -1}, // закрыт
		{WarehouseID: 507, BoxTypeID: 5, Coefficient: 0},  // не короба
		{WarehouseID: 686, BoxTypeID: 2, Coefficient: 0},
		{WarehouseID: 686, BoxTypeID: 2, Coefficient: 3},
	}

	if _, ok := FreeSlot(coefs, 507); ok {
		t.Fatal("у 507 нет бесплатной приёмки коробов")
	}
	if _, ok := FreeSlot(coefs, 686); !ok {
		t.Fatal("у 686 есть бесплатный слот")
	}
	if _, ok := FreeSlot(coefs, 117501); ok {
		t.Fatal("склада нет в ответе")
	}
}

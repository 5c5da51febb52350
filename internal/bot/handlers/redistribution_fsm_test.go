package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/redist"
	"github.com/wbredist/wb-redist-bot/internal/wbapi"
)

const fsmChatID int64 = 424242

// newFakeBot — бот поверх httptest-сервера, который отвечает «ок» на любой
// метод Telegram. Достаточно для проверки переходов состояния.
func newFakeBot(t *testing.T) *tgbotapi.BotAPI {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Бот","username":"testbot"}}`))
	}))
	t.Cleanup(srv.Close)

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("test-token", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatal(err)
	}
	return bot
}

func fsmCallback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cq-1",
		From:    &tgbotapi.User{ID: fsmChatID},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: fsmChatID}},
	}
}

func TestHandleRedistCallback_StaleKeyboard(t *testing.T) {
	bot := newFakeBot(t)

	cases := map[string]struct {
		state *RedistFSMState
		data  string
	}{
		// После рестарта мастер на шаге артикулов, снимка остатков нет —
		// клик по старой клавиатуре складов не должен ничего трогать.
		"src_without_selected_sku": {
			state: &RedistFSMState{Step: 1},
			data:  "redist_src:507",
		},
		"dst_on_wrong_step": {
			state: &RedistFSMState{Step: 1},
			data:  "redist_dst:686",
		},
		"qty_on_wrong_step": {
			state: &RedistFSMState{Step: 2, Summary: &models.SkuStockSummary{Sku: "ART-001"}},
			data:  "redist_qty_add:10",
		},
		"confirm_on_wrong_step": {
			state: &RedistFSMState{Step: 4},
			data:  "redist_confirm",
		},
		"page_on_wrong_step": {
			state: &RedistFSMState{Step: 3},
			data:  "redist_page:1",
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			redistStates[fsmChatID] = c.state
			defer delete(redistStates, fsmChatID)
			before := *c.state

			HandleRedistCallback(bot, nil, fsmCallback(c.data))

			after := redistStates[fsmChatID]
			if after == nil {
				t.Fatal("состояние мастера не должно сбрасываться")
			}
			if after.Step != before.Step || after.Draft != before.Draft {
				t.Fatalf("устаревший клик изменил состояние: было %+v, стало %+v", before, *after)
			}
		})
	}
}

func TestHandleRedistCallback_TargetStockCheckFails(t *testing.T) {
	bot := newFakeBot(t)

	// База недоступна: перечитать остаток перед выбором количества нельзя.
	badDB, err := sql.Open("pgx", "postgres://wb:wb@127.0.0.1:1/wb?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = badDB.Close() })
	svc := redist.NewService(badDB, nil, wbapi.Config{Timeout: time.Second}, time.Second, zap.NewNop().Sugar())

	state := &RedistFSMState{
		Step:    3,
		Summary: &models.SkuStockSummary{Sku: "ART-001"},
		Draft: redist.Draft{
			Sku:               "ART-001",
			SourceWarehouseID: 117501,
			Available:         10,
		},
	}
	redistStates[fsmChatID] = state
	defer delete(redistStates, fsmChatID)

	HandleRedistCallback(bot, svc, fsmCallback("redist_dst:686"))

	if state.Step != 3 {
		t.Fatalf("при ошибке проверки остатка мастер остаётся на выборе склада, шаг %d", state.Step)
	}
	if state.Draft.TargetWarehouseID != 0 || state.Draft.TargetWarehouseName != "" {
		t.Fatalf("назначение не должно фиксироваться без свежего остатка: %+v", state.Draft)
	}
	if state.Draft.Available != 10 {
		t.Fatalf("старый снимок остатка не должен перетираться: %d", state.Draft.Available)
	}
}

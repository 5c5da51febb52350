package app

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/bot/handlers"
	"github.com/wbredist/wb-redist-bot/internal/bot/menu"
	"github.com/wbredist/wb-redist-bot/internal/crypto"
	"github.com/wbredist/wb-redist-bot/internal/metrics"
	"github.com/wbredist/wb-redist-bot/internal/observability"
	"github.com/wbredist/wb-redist-bot/internal/redist"
	"github.com/wbredist/wb-redist-bot/internal/tg"
)

// Deps — всё, что нужно обработчикам: бот, база, доменный сервис и шифрование.
type Deps struct {
	Bot      *tgbotapi.BotAPI
	DB       *sql.DB
	Svc      *redist.Service
	Box      *crypto.Box
	AdminIDs []int64        // кому доступен /admin
	Loc      *time.Location // таймзона для дат в истории и выгрузках
}

func isAdmin(ids []int64, chatID int64) bool {
	for _, id := range ids {
		if id == chatID {
			return true
		}
	}
	return false
}

// HandleUpdate — точка входа одного апдейта. Каждый апдейт обрабатывается
// в своей горутине, но события одного чата строго последовательно:
// состояние мастера мутируется без гонок. Паника в обработчике роняет
// только этот апдейт, а не весь бот.
func HandleUpdate(d *Deps, limiter *ChatLimiter, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrors.Inc()
			observability.CaptureErr(fmt.Errorf("паника в обработчике апдейта: %v", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		unlock := limiter.lock(update.CallbackQuery.From.ID)
		defer unlock()
		HandleCallback(d, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		unlock := limiter.lock(update.Message.Chat.ID)
		defer unlock()
		HandleMessage(d, update.Message)
	}
}

func HandleMessage(d *Deps, msg *tgbotapi.Message) {
	metrics.BotUpdates.Inc()
	chatID := msg.Chat.ID
	text := msg.Text

	if text == "/start" {
		handlers.HandleStart(d.Bot, d.DB, msg)
		return
	}

	// Активные FSM перехватывают текст раньше команд.
	if handlers.GetRedistState(chatID) != nil {
		handlers.HandleRedistText(d.Bot, msg)
		return
	}
	if handlers.GetTokenState(chatID) != nil {
		handlers.HandleTokenText(d.Bot, d.DB, d.Box, d.Svc, msg)
		return
	}
	if _, ok := handlers.GetEditQtyState(chatID); ok {
		handlers.HandleEditQtyText(d.Bot, d.DB, msg)
		return
	}

	switch text {
	case "/redistribute", menu.BtnRedistribute:
		handlers.StartRedistFSM(d.Bot, d.Svc, msg)
	case "/requests", menu.BtnRequests:
		handlers.ShowRequests(d.Bot, d.DB, d.Loc, msg)
	case "/stocks", menu.BtnStocks:
		handlers.ShowStocks(d.Bot, d.Svc, msg)
	case "/suppliers", menu.BtnSuppliers:
		handlers.ShowSuppliersMenu(d.Bot, d.DB, msg)
	case "/tokens", menu.BtnTokens:
		handlers.ShowTokensMenu(d.Bot, d.DB, msg)
	case "/admin":
		if !isAdmin(d.AdminIDs, chatID) {
			_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "⚠️ Неизвестная команда. Используйте /start"))
			return
		}
		handlers.ShowAdminStats(d.Bot, d.DB, msg)
	default:
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "⚠️ Неизвестная команда. Используйте /start"))
	}
}

func HandleCallback(d *Deps, cb *tgbotapi.CallbackQuery) {
	metrics.BotUpdates.Inc()
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "redist_"):
		handlers.HandleRedistCallback(d.Bot, d.Svc, cb)
	case strings.HasPrefix(data, "token_"):
		handlers.HandleTokenCallback(d.Bot, d.DB, cb)
	case strings.HasPrefix(data, "supplier_"):
		handlers.HandleSupplierCallback(d.Bot, d.DB, cb)
	case strings.HasPrefix(data, "req_"):
		handlers.HandleRequestsCallback(d.Bot, d.DB, d.Loc, cb)
	}

	// Гасим «часики» на кнопке; если обработчик уже ответил
	// алертом, повторный пустой ответ Telegram просто игнорирует.
	_, _ = tg.Request(d.Bot, tgbotapi.NewCallback(cb.ID, ""))
}

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/bot/shared/fsmutil"
	"github.com/wbredist/wb-redist-bot/internal/ctxutil"
	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/tg"
)

// ShowSuppliersMenu — список кабинетов; кликом выбирается кабинет по умолчанию.
func ShowSuppliersMenu(bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	ctx, cancel := ctxutil.WithDBTimeout(context.Background())
	defer cancel()
	suppliers, err := db.ListSuppliers(ctx, database, chatID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось получить список кабинетов."))
		return
	}
	if len(suppliers) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			"🏪 Кабинетов пока нет. Добавьте WB API токен — кабинет создастся автоматически."))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range suppliers {
		label := s.Name
		if s.IsDefault {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("supplier_default:%d", s.ID)),
		))
	}

	out := tgbotapi.NewMessage(chatID, "🏪 Выберите кабинет по умолчанию:")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func HandleSupplierCallback(bot *tgbotapi.BotAPI, database *sql.DB, cq *tgbotapi.CallbackQuery) {
	chatID := cq.From.ID
	if !strings.HasPrefix(cq.Data, "supplier_default:") {
		return
	}
	id, _ := strconv.ParseInt(strings.TrimPrefix(cq.Data, "supplier_default:"), 10, 64)

	ctx, cancel := ctxutil.WithDBTimeout(context.Background())
	defer cancel()
	if err := db.SetDefaultSupplier(ctx, database, chatID, id); err != nil {
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "Кабинет не найден."))
		return
	}
	fsmutil.DisableMarkup(bot, chatID, cq.Message.MessageID)
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "✅ Кабинет по умолчанию обновлён."))
}

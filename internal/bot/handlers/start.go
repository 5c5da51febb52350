package handlers

import (
	"context"
	"database/sql"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/bot/menu"
	"github.com/wbredist/wb-redist-bot/internal/ctxutil"
	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/tg"
)

// HandleStart — регистрация пользователя и главное меню.
func HandleStart(bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	ctx, cancel := ctxutil.WithDBTimeout(context.Background())
	defer cancel()
	_ = db.UpsertUser(ctx, database, chatID, msg.From.UserName, msg.From.FirstName)

	out := tgbotapi.NewMessage(chatID,
		"Привет! Я помогаю перемещать остатки между складами WB. 📦\n\n"+
			"Начните с добавления WB API токена («⚙️ Токены»), затем выбирайте «🔄 Переместить остатки».")
	out.ReplyMarkup = menu.Main()
	_, _ = tg.Send(bot, out)
}

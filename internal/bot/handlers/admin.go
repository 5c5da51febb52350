package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/ctxutil"
	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/tg"
)

// ShowAdminStats — служебная сводка по заявкам; доступ проверяет диспетчер.
func ShowAdminStats(bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	ctx, cancel := ctxutil.WithDBTimeout(context.Background())
	defer cancel()
	counts, err := db.RequestStatusCounts(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось получить статистику."))
		return
	}

	var b strings.Builder
	b.WriteString("📊 <b>Заявки по статусам</b>\n\n")
	total := 0
	for _, s := range []models.RequestStatus{
		models.StatusPending, models.StatusSearching, models.StatusCompleted, models.StatusCancelled,
	} {
		fmt.Fprintf(&b, "%s: %d\n", statusBadge(s), counts[s])
		total += counts[s]
	}
	fmt.Fprintf(&b, "\nВсего: %d", total)

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeHTML
	_, _ = tg.Send(bot, out)
}

package handlers

import (
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/redist"
	"github.com/wbredist/wb-redist-bot/internal/tg"
)

const stocksViewLimit = 15

// ShowStocks — сводка остатков по артикулам, без входа в мастер.
func ShowStocks(bot *tgbotapi.BotAPI, svc *redist.Service, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	summaries, err := svc.StockSummaries(redistCtx(chatID), chatID)
	if err != nil {
		if errors.Is(err, redist.ErrNoSupplier) {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "🔑 Сначала добавьте WB API токен: «⚙️ Токены» в меню."))
			return
		}
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось получить остатки с WB. Попробуйте позже."))
		return
	}
	if len(summaries) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "📭 На складах WB нет остатков."))
		return
	}

	var b strings.Builder
	b.WriteString("📦 <b>Остатки по артикулам</b>\n\n")
	for i, g := range summaries {
		if i == stocksViewLimit {
			fmt.Fprintf(&b, "… и ещё %d артикулов\n", len(summaries)-stocksViewLimit)
			break
		}
		name := g.ProductName
		if name == "" {
			name = g.Sku
		}
		fmt.Fprintf(&b, "<b>%s</b> (%s) — %d шт.\n", html.EscapeString(truncateRunes(name, redistNameMaxLen)), html.EscapeString(g.Sku), g.TotalQuantity)
		for _, w := range g.Warehouses {
			if w.Available() <= 0 {
				continue
			}
			fmt.Fprintf(&b, "   · %s: %d шт.\n", html.EscapeString(w.WarehouseName), w.Available())
		}
	}

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeHTML
	_, _ = tg.Send(bot, out)
}

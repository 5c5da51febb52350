package tg

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/metrics"
	"github.com/wbredist/wb-redist-bot/internal/observability"
)

// Системные ошибки (5xx, 429, таймауты) уходят в Sentry; пользовательские
// промахи вроде «message is not modified» при повторном клике — нет.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	switch {
	case strings.Contains(s, "message is not modified"),
		strings.Contains(s, "chat not found"),
		strings.Contains(s, "blocked by the user"),
		strings.Contains(s, "can't parse entities"):
		return false
	}
	return strings.Contains(s, "429") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "timeout")
}

func Send(bot *tgbotapi.BotAPI, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	track(err)
	return m, err
}

func Request(bot *tgbotapi.BotAPI, req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r, err := bot.Request(req)
	track(err)
	return r, err
}

func track(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.TelegramSends.WithLabelValues(outcome).Inc()
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
}

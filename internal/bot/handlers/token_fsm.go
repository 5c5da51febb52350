package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/bot/shared/fsmutil"
	"github.com/wbredist/wb-redist-bot/internal/crypto"
	"github.com/wbredist/wb-redist-bot/internal/ctxutil"
	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/redist"
	"github.com/wbredist/wb-redist-bot/internal/tg"
)

type TokenFSMState struct {
	Step int
	Name string
}

var tokenStates = make(map[int64]*TokenFSMState)

// ==== меню токенов ====

func ShowTokensMenu(bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	delete(tokenStates, chatID)

	ctx, cancel := ctxutil.WithDBTimeout(context.Background())
	defer cancel()
	tokens, err := db.ListTokens(ctx, database, chatID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось получить список токенов."))
		return
	}

	text := "⚙️ <b>WB API токены</b>\n\n"
	if len(tokens) == 0 {
		text += "Токенов пока нет. Токен создаётся в личном кабинете WB:\nПрофиль → Настройки → Доступ к API."
	} else {
		for _, t := range tokens {
			text += fmt.Sprintf("• %s (добавлен %s)\n", t.Name, t.CreatedAt.Format("02.01.2006"))
		}
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Добавить токен", "token_add"),
	))
	for _, t := range tokens {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑 Удалить «%s»", t.Name), fmt.Sprintf("token_del:%d", t.ID)),
		))
	}

	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

// ==== callbacks ====

func HandleTokenCallback(bot *tgbotapi.BotAPI, database *sql.DB, cq *tgbotapi.CallbackQuery) {
	chatID := cq.From.ID
	data := cq.Data

	if data == "token_add" {
		tokenStates[chatID] = &TokenFSMState{Step: 1}
		fsmutil.DisableMarkup(bot, chatID, cq.Message.MessageID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Как назвать кабинет? Например: «Основной» или название ИП."))
		return
	}

	if strings.HasPrefix(data, "token_del:") {
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "token_del:"), 10, 64)
		ctx, cancel := ctxutil.WithDBTimeout(context.Background())
		defer cancel()
		if err := db.DeactivateToken(ctx, database, chatID, id); err != nil {
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "Токен не найден."))
			return
		}
		fsmutil.DisableMarkup(bot, chatID, cq.Message.MessageID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "🗑 Токен деактивирован."))
		return
	}
}

// ==== текстовые шаги ====

func HandleTokenText(bot *tgbotapi.BotAPI, database *sql.DB, box *crypto.Box, svc *redist.Service, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	state, ok := tokenStates[chatID]
	if !ok {
		return
	}

	if fsmutil.IsCancelText(msg.Text) {
		delete(tokenStates, chatID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "🚫 Добавление токена отменено."))
		return
	}

	switch state.Step {
	case 1:
		name := strings.TrimSpace(msg.Text)
		if name == "" || len([]rune(name)) > 50 {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите название до 50 символов."))
			return
		}
		state.Name = name
		state.Step = 2
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			"Теперь пришлите сам токен.\n\n⚠️ Сообщение с токеном лучше удалить после добавления."))
	case 2:
		token := strings.TrimSpace(msg.Text)
		if len(token) < 20 {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Это не похоже на WB API токен, пришлите ещё раз."))
			return
		}

		key := "token:add"
		if !fsmutil.SetPending(chatID, key) {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "⏳ Запрос уже обрабатывается…"))
			return
		}
		defer fsmutil.ClearPending(chatID, key)

		// Пингуем WB до сохранения: явно отклонённый токен не записываем,
		// состояние не сбрасываем — пусть пришлёт исправленный.
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pingCancel()
		if err := svc.ValidateToken(pingCtx, token); err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
				"❌ WB отклонил токен. Проверьте, что он скопирован целиком и ещё активен."))
			return
		}

		encrypted, err := box.Encrypt(token)
		if err != nil {
			delete(tokenStates, chatID)
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось сохранить токен, попробуйте позже."))
			return
		}

		ctx, cancel := ctxutil.WithDBTimeout(context.Background())
		defer cancel()
		tokenID, err := db.AddToken(ctx, database, chatID, state.Name, encrypted)
		if err == nil {
			_, err = db.AddSupplier(ctx, database, chatID, state.Name, tokenID)
		}
		delete(tokenStates, chatID)
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось сохранить токен, попробуйте позже."))
			return
		}
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			fmt.Sprintf("✅ Кабинет «%s» добавлен. Теперь доступно «🔄 Переместить остатки».", state.Name)))
	}
}

// доступ из диспетчера
func GetTokenState(chatID int64) *TokenFSMState {
	return tokenStates[chatID]
}

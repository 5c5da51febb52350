package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/bot/shared/fsmutil"
	"github.com/wbredist/wb-redist-bot/internal/ctxutil"
	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/redist"
	"github.com/wbredist/wb-redist-bot/internal/tg"
	"github.com/wbredist/wb-redist-bot/internal/wbapi"
)

type RedistFSMState struct {
	Step      int
	Page      int
	All       []*models.SkuStockSummary // полный снимок остатков
	Summaries []*models.SkuStockSummary // текущая выборка (после поиска)
	Query     string
	Summary   *models.SkuStockSummary // выбранный артикул
	Draft     redist.Draft
}

var redistStates = make(map[int64]*RedistFSMState)

// ==== helpers ====

func redistEditMenu(bot *tgbotapi.BotAPI, chatID int64, messageID int, text string, rows [][]tgbotapi.InlineKeyboardButton) {
	cfg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	cfg.ParseMode = tgbotapi.ModeHTML
	mk := tgbotapi.NewInlineKeyboardMarkup(rows...)
	cfg.ReplyMarkup = &mk
	_, _ = tg.Send(bot, cfg)
}

func redistSendMenu(bot *tgbotapi.BotAPI, chatID int64, text string, rows [][]tgbotapi.InlineKeyboardButton) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func redistFinish(bot *tgbotapi.BotAPI, chatID int64, messageID int, text string) {
	delete(redistStates, chatID)
	fsmutil.DisableMarkup(bot, chatID, messageID)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	_, _ = tg.Send(bot, edit)
}

func redistCtx(chatID int64) context.Context {
	return ctxutil.WithChatID(context.Background(), chatID)
}

// redistStale — клик по клавиатуре не того шага: сообщение из прошлого
// состояния мастера, обрабатывать его данные нельзя.
func redistStale(bot *tgbotapi.BotAPI, cqID string) {
	_, _ = tg.Request(bot, tgbotapi.NewCallback(cqID, "⌛ Список устарел, начните заново."))
}

func redistSkuPrompt(state *RedistFSMState) string {
	if state.Query != "" {
		return fmt.Sprintf("🔎 Найдено по «%s» — %d. Выберите артикул или пришлите новый запрос:",
			state.Query, len(state.Summaries))
	}
	return "Выберите артикул для перемещения.\nМожно прислать текст — найду по артикулу или названию."
}

// ==== start ====

func StartRedistFSM(bot *tgbotapi.BotAPI, svc *redist.Service, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	delete(redistStates, chatID)

	summaries, err := svc.StockSummaries(redistCtx(chatID), chatID)
	if err != nil {
		switch {
		case errors.Is(err, redist.ErrNoSupplier):
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "🔑 Сначала добавьте WB API токен: «⚙️ Токены» в меню."))
		default:
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось получить остатки с WB. Попробуйте позже."))
		}
		return
	}
	if len(summaries) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "📭 На складах WB нет остатков — перемещать нечего."))
		return
	}

	state := &RedistFSMState{Step: 1, All: summaries, Summaries: summaries}
	redistStates[chatID] = state

	rows, page := redistSkuRows(summaries, 0)
	state.Page = page
	out := tgbotapi.NewMessage(chatID, redistSkuPrompt(state))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

// ==== callbacks ====

func HandleRedistCallback(bot *tgbotapi.BotAPI, svc *redist.Service, cq *tgbotapi.CallbackQuery) {
	chatID := cq.From.ID
	state, ok := redistStates[chatID]
	if !ok {
		// Клик по клавиатуре из прошлой сессии.
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "⌛ Сессия истекла, начните заново из меню."))
		return
	}
	data := cq.Data

	if data == "redist_cancel" {
		redistFinish(bot, chatID, cq.Message.MessageID, "🚫 Перемещение отменено.")
		return
	}

	if data == "redist_back" {
		redistBack(bot, svc, chatID, cq.Message.MessageID, state)
		return
	}

	if data == "redist_noop" {
		return // кнопка-индикатор страницы
	}

	if data == "redist_restart" {
		state.Draft = redist.Draft{}
		state.Summary = nil
		state.Summaries = state.All
		state.Query = ""
		state.Step = 1
		rows, page := redistSkuRows(state.Summaries, 0)
		state.Page = page
		redistEditMenu(bot, chatID, cq.Message.MessageID, redistSkuPrompt(state), rows)
		return
	}

	if strings.HasPrefix(data, "redist_page:") {
		if state.Step != 1 {
			redistStale(bot, cq.ID)
			return
		}
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "redist_page:"))
		rows, page := redistSkuRows(state.Summaries, page)
		state.Page = page
		redistEditMenu(bot, chatID, cq.Message.MessageID, redistSkuPrompt(state), rows)
		return
	}

	if strings.HasPrefix(data, "redist_sku:") {
		idx, _ := strconv.Atoi(strings.TrimPrefix(data, "redist_sku:"))
		if state.Step != 1 || idx < 0 || idx >= len(state.Summaries) {
			redistStale(bot, cq.ID)
			return
		}
		state.Summary = state.Summaries[idx]
		state.Draft = redist.Draft{
			Sku:         state.Summary.Sku,
			NmID:        state.Summary.NmID,
			ProductName: state.Summary.ProductName,
		}
		redistShowSources(bot, chatID, cq.Message.MessageID, state)
		return
	}

	if strings.HasPrefix(data, "redist_src:") {
		// После рестарта или до выбора артикула снимка остатков нет.
		if state.Step != 2 || state.Summary == nil {
			redistStale(bot, cq.ID)
			return
		}
		whID, _ := strconv.ParseInt(strings.TrimPrefix(data, "redist_src:"), 10, 64)
		var found *models.StockItem
		for i := range state.Summary.Warehouses {
			if state.Summary.Warehouses[i].WarehouseID == whID {
				found = &state.Summary.Warehouses[i]
				break
			}
		}
		if found == nil || found.Available() <= 0 {
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "На этом складе уже нет остатков."))
			return
		}
		state.Draft.SourceWarehouseID = found.WarehouseID
		state.Draft.SourceWarehouseName = found.WarehouseName
		state.Draft.Barcode = found.Barcode
		state.Draft.Available = found.Available()
		state.Step = 3

		targets := svc.TargetWarehouses(redistCtx(chatID))
		redistEditMenu(bot, chatID, cq.Message.MessageID,
			"Куда перемещаем?", redistTargetRows(targets, whID))
		return
	}

	if strings.HasPrefix(data, "redist_dst:") {
		if state.Step != 3 {
			redistStale(bot, cq.ID)
			return
		}
		whID, _ := strconv.ParseInt(strings.TrimPrefix(data, "redist_dst:"), 10, 64)

		// Перед подбором количества перечитываем остаток: он мог
		// измениться, пока пользователь ходил по шагам. Без свежего
		// значения дальше не идём.
		avail, err := svc.AvailableQuantity(redistCtx(chatID), chatID, state.Draft.Sku, state.Draft.SourceWarehouseID)
		if err != nil {
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "⚠️ Не удалось проверить остаток, попробуйте ещё раз."))
			return
		}
		state.Draft.Available = avail
		if avail <= 0 {
			state.Step = 2
			redistShowSources(bot, chatID, cq.Message.MessageID, state)
			return
		}
		state.Draft.TargetWarehouseID = whID
		state.Draft.TargetWarehouseName = svc.WarehouseName(redistCtx(chatID), whID)
		state.Draft.Quantity = 0
		state.Step = 4
		redistEditMenu(bot, chatID, cq.Message.MessageID,
			redistQtyText(0, state.Draft.Available), redistQtyRows(0, state.Draft.Available))
		return
	}

	if strings.HasPrefix(data, "redist_qty_") || data == "redist_confirm" {
		wantStep := 4
		if data == "redist_confirm" {
			wantStep = 6
		}
		if state.Step != wantStep {
			redistStale(bot, cq.ID)
			return
		}
	}

	if strings.HasPrefix(data, "redist_qty_add:") {
		delta, _ := strconv.Atoi(strings.TrimPrefix(data, "redist_qty_add:"))
		q := state.Draft.Quantity + delta
		if q < 0 {
			q = 0
		}
		if q > state.Draft.Available {
			q = state.Draft.Available
		}
		state.Draft.Quantity = q
		redistEditMenu(bot, chatID, cq.Message.MessageID,
			redistQtyText(q, state.Draft.Available), redistQtyRows(q, state.Draft.Available))
		return
	}

	if data == "redist_qty_max" || data == "redist_qty_min" {
		q := 0
		if data == "redist_qty_max" {
			q = state.Draft.Available
		}
		state.Draft.Quantity = q
		redistEditMenu(bot, chatID, cq.Message.MessageID,
			redistQtyText(q, state.Draft.Available), redistQtyRows(q, state.Draft.Available))
		return
	}

	if data == "redist_qty_manual" {
		state.Step = 5
		rows := [][]tgbotapi.InlineKeyboardButton{redistBackCancelRow()}
		redistEditMenu(bot, chatID, cq.Message.MessageID,
			fmt.Sprintf("Введите количество числом (от 1 до %d):", state.Draft.Available), rows)
		return
	}

	if data == "redist_qty_next" {
		if state.Draft.Quantity <= 0 {
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "Выберите количество больше нуля."))
			return
		}
		state.Step = 6
		redistEditMenu(bot, chatID, cq.Message.MessageID,
			redist.FormatSummary(&state.Draft), redistConfirmRows())
		return
	}

	if data == "redist_confirm" {
		redistSubmit(bot, svc, chatID, cq, state)
		return
	}
}

// redistBack — шаг назад; с первого шага выходим из мастера.
func redistBack(bot *tgbotapi.BotAPI, svc *redist.Service, chatID int64, messageID int, state *RedistFSMState) {
	switch state.Step {
	case 1: // активный поиск сбрасываем, без него выходим из мастера
		if state.Query == "" {
			redistFinish(bot, chatID, messageID, "🚫 Перемещение отменено.")
			return
		}
		state.Query = ""
		state.Summaries = state.All
		rows, page := redistSkuRows(state.Summaries, 0)
		state.Page = page
		redistEditMenu(bot, chatID, messageID, redistSkuPrompt(state), rows)
	case 2: // выбирали источник → назад к артикулам
		state.Step = 1
		rows, page := redistSkuRows(state.Summaries, state.Page)
		state.Page = page
		redistEditMenu(bot, chatID, messageID, redistSkuPrompt(state), rows)
	case 3: // выбирали назначение → назад к источнику
		redistShowSources(bot, chatID, messageID, state)
	case 4: // подбирали количество → назад к назначению
		state.Step = 3
		state.Draft.Quantity = 0
		targets := svc.TargetWarehouses(redistCtx(chatID))
		redistEditMenu(bot, chatID, messageID, "Куда перемещаем?",
			redistTargetRows(targets, state.Draft.SourceWarehouseID))
	case 5: // ручной ввод → назад к клавиатуре количества
		state.Step = 4
		redistEditMenu(bot, chatID, messageID,
			redistQtyText(state.Draft.Quantity, state.Draft.Available),
			redistQtyRows(state.Draft.Quantity, state.Draft.Available))
	case 6: // подтверждение → назад к количеству
		state.Step = 4
		redistEditMenu(bot, chatID, messageID,
			redistQtyText(state.Draft.Quantity, state.Draft.Available),
			redistQtyRows(state.Draft.Quantity, state.Draft.Available))
	default:
		redistFinish(bot, chatID, messageID, "🚫 Перемещение отменено.")
	}
}

// redistShowSources — шаг выбора склада-источника по снимку остатков артикула.
func redistShowSources(bot *tgbotapi.BotAPI, chatID int64, messageID int, state *RedistFSMState) {
	state.Step = 2
	rows := redistSourceRows(state.Summary.Warehouses)
	if len(rows) == 1 { // только back/cancel
		redistEditMenu(bot, chatID, messageID,
			fmt.Sprintf("На складах нет доступных остатков по артикулу %s.", state.Summary.Sku), rows)
		return
	}
	redistEditMenu(bot, chatID, messageID,
		fmt.Sprintf("Откуда перемещаем <b>%s</b>?", state.Summary.Sku), rows)
}

// redistSubmit — подтверждение заявки. Состояние снимается до похода в WB:
// даже если пользователь отменит сессию во время отправки, результат
// всё равно будет записан в историю.
func redistSubmit(bot *tgbotapi.BotAPI, svc *redist.Service, chatID int64, cq *tgbotapi.CallbackQuery, state *RedistFSMState) {
	key := "redist:submit"
	if !fsmutil.SetPending(chatID, key) {
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "⏳ Заявка уже отправляется…"))
		return
	}
	defer fsmutil.ClearPending(chatID, key)

	fsmutil.DisableMarkup(bot, chatID, cq.Message.MessageID)
	_, _ = tg.Send(bot, tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, "⏳ Отправляю заявку…"))

	res, err := svc.Submit(redistCtx(chatID), chatID, &state.Draft)
	if err != nil {
		var insufficient *redist.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			// Остаток уехал, пока подтверждали: возвращаемся к количеству
			// с новым потолком и подрезанным значением.
			state.Draft.Available = insufficient.Available
			if state.Draft.Quantity > insufficient.Available {
				state.Draft.Quantity = insufficient.Available
			}
			state.Step = 4
			redistSendMenu(bot, chatID,
				fmt.Sprintf("⚠️ Остаток изменился: доступно %d шт.\n\n%s",
					insufficient.Available, redistQtyText(state.Draft.Quantity, state.Draft.Available)),
				redistQtyRows(state.Draft.Quantity, state.Draft.Available))
		case errors.Is(err, redist.ErrExhausted):
			redistFinish(bot, chatID, cq.Message.MessageID,
				"❌ На складе-источнике уже не осталось товара. Начните заново из меню.")
		case errors.Is(err, redist.ErrUnknownOutcome):
			redistFinish(bot, chatID, cq.Message.MessageID,
				fmt.Sprintf("⏳ WB не ответил вовремя, результат неизвестен.\nЗаявка №%d сохранена — бот досведёт её сам, статус смотрите в «📋 Мои заявки».", res.RequestID))
		default:
			state.Step = 6
			redistSendMenu(bot, chatID,
				"❌ WB API сейчас недоступен. Попробуйте подтвердить ещё раз.",
				redistConfirmRows())
		}
		return
	}

	redistFinish(bot, chatID, cq.Message.MessageID, redist.FormatResult(res))
}

// ==== текстовый шаг ====

func HandleRedistText(bot *tgbotapi.BotAPI, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	state, ok := redistStates[chatID]
	if !ok || (state.Step != 1 && state.Step != 5) {
		return
	}

	if fsmutil.IsCancelText(msg.Text) {
		delete(redistStates, chatID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "🚫 Перемещение отменено."))
		return
	}

	if state.Step == 1 {
		redistSearch(bot, chatID, state, msg.Text)
		return
	}

	q, ok := parseManualQty(msg.Text, state.Draft.Available)
	if !ok {
		// Значение вне диапазона не подрезаем — просим ввести заново.
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			fmt.Sprintf("❌ Введите целое число от 1 до %d.", state.Draft.Available)))
		return
	}

	state.Draft.Quantity = q
	state.Step = 4
	redistSendMenu(bot, chatID,
		redistQtyText(q, state.Draft.Available), redistQtyRows(q, state.Draft.Available))
}

// redistSearch сужает список артикулов по подстроке. Выбор по кнопкам
// ссылается на state.Summaries, поэтому выборку подменяем целиком.
func redistSearch(bot *tgbotapi.BotAPI, chatID int64, state *RedistFSMState, query string) {
	query = strings.TrimSpace(query)
	filtered := wbapi.FilterSummaries(state.All, query)
	if len(filtered) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			fmt.Sprintf("🔎 По запросу «%s» ничего не нашлось. Пришлите другой текст или выберите из списка.", query)))
		return
	}
	state.Query = query
	state.Summaries = filtered
	rows, page := redistSkuRows(filtered, 0)
	state.Page = page
	redistSendMenu(bot, chatID, redistSkuPrompt(state), rows)
}

// доступ из диспетчера
func GetRedistState(chatID int64) *RedistFSMState {
	return redistStates[chatID]
}

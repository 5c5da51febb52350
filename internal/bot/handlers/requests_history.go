package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"

	"github.com/wbredist/wb-redist-bot/internal/bot/shared/fsmutil"
	"github.com/wbredist/wb-redist-bot/internal/ctxutil"
	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/tg"
)

const requestsListLimit = 10

// editQtyStates — мини-FSM редактирования количества в заявке.
var editQtyStates = make(map[int64]int64) // chatID → requestID

func statusBadge(s models.RequestStatus) string {
	switch s {
	case models.StatusPending:
		return "🕐 Ждёт слот"
	case models.StatusSearching:
		return "🔍 Ищем слот"
	case models.StatusCompleted:
		return "✅ Выполнена"
	case models.StatusCancelled:
		return "🚫 Отменена"
	default:
		return string(s)
	}
}

// fmtDate — дата в таймзоне пользователя; nil loc — серверная зона.
func fmtDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02.01.2006 15:04")
}

// ShowRequests — история заявок пользователя с действиями по каждой.
func ShowRequests(bot *tgbotapi.BotAPI, database *sql.DB, loc *time.Location, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	delete(editQtyStates, chatID)

	ctx, cancel := ctxutil.WithDBTimeout(context.Background())
	defer cancel()
	requests, err := db.ListRequests(ctx, database, chatID, "", requestsListLimit)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось получить заявки."))
		return
	}
	if len(requests) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "📭 Заявок пока нет."))
		return
	}

	var b strings.Builder
	b.WriteString("📋 <b>Мои заявки</b>\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range requests {
		fmt.Fprintf(&b, "№%d · %s · %s\n%s → %s · %d шт. · %s\n",
			r.ID, r.Sku, fmtDate(r.CreatedAt, loc),
			r.SourceWarehouseName, r.TargetWarehouseName,
			r.Quantity, statusBadge(r.Status))
		if r.SupplyID != nil {
			fmt.Fprintf(&b, "Поставка: %s\n", *r.SupplyID)
		}
		b.WriteString("\n")

		if r.Editable() {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("✏️ №%d: изменить кол-во", r.ID), fmt.Sprintf("req_qty:%d", r.ID)),
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("🚫 №%d: отменить", r.ID), fmt.Sprintf("req_cancel:%d", r.ID)),
			))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📥 Экспорт в Excel", "req_export"),
	))

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func HandleRequestsCallback(bot *tgbotapi.BotAPI, database *sql.DB, loc *time.Location, cq *tgbotapi.CallbackQuery) {
	chatID := cq.From.ID
	data := cq.Data

	if data == "req_export" {
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, ""))
		go exportRequestsExcel(bot, database, loc, chatID)
		return
	}

	if strings.HasPrefix(data, "req_qty:") {
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "req_qty:"), 10, 64)
		editQtyStates[chatID] = id
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			fmt.Sprintf("Введите новое количество для заявки №%d:", id)))
		return
	}

	if strings.HasPrefix(data, "req_cancel:") {
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "req_cancel:"), 10, 64)
		ctx, cancel := ctxutil.WithDBTimeout(context.Background())
		defer cancel()
		req, err := db.GetRequest(ctx, database, id)
		if err != nil || req == nil || req.UserID != chatID || !req.Editable() {
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "Заявку уже нельзя отменить."))
			return
		}
		if err := db.CancelRequest(ctx, database, chatID, id); err != nil {
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cq.ID, "Заявку уже нельзя отменить."))
			return
		}
		fsmutil.DisableMarkup(bot, chatID, cq.Message.MessageID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("🚫 Заявка №%d отменена.", id)))
		return
	}
}

// HandleEditQtyText — новое количество для заявки; меняется только до выполнения.
func HandleEditQtyText(bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	reqID, ok := editQtyStates[chatID]
	if !ok {
		return
	}

	if fsmutil.IsCancelText(msg.Text) {
		delete(editQtyStates, chatID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "🚫 Изменение отменено."))
		return
	}

	q, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || q < 1 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Введите целое число больше нуля."))
		return
	}

	ctx, cancel := ctxutil.WithDBTimeout(context.Background())
	defer cancel()
	if err := db.UpdateRequestQuantity(ctx, database, chatID, reqID, q); err != nil {
		delete(editQtyStates, chatID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Заявку уже нельзя изменить: она выполнена или отменена."))
		return
	}
	delete(editQtyStates, chatID)
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
		fmt.Sprintf("✅ Количество в заявке №%d обновлено: %d шт.", reqID, q)))
}

// exportRequestsExcel — полная история заявок одним .xlsx файлом.
func exportRequestsExcel(bot *tgbotapi.BotAPI, database *sql.DB, loc *time.Location, chatID int64) {
	ctx, cancel := ctxutil.WithDBTimeout(context.Background())
	defer cancel()
	requests, err := db.ListRequests(ctx, database, chatID, "", 1000)
	if err != nil {
		log.Println("requests export: list:", err)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось получить заявки."))
		return
	}

	path, err := generateRequestsReport(requests, loc)
	if err != nil {
		log.Println("requests export: generate file:", err)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Не удалось сформировать Excel-файл."))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = "📋 История заявок на перемещение"
	_, _ = tg.Send(bot, doc)
}

func generateRequestsReport(requests []models.RedistributionRequest, loc *time.Location) (string, error) {
	f := excelize.NewFile()
	sheet := "Заявки"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"№", "Артикул", "Товар", "Откуда", "Куда", "Кол-во", "Статус", "Поставка", "Создана", "Завершена"}
	for i, h := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, r := range requests {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Sku)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.ProductName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.SourceWarehouseName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.TargetWarehouseName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.Quantity)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), string(r.Status))
		if r.SupplyID != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), *r.SupplyID)
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), fmtDate(r.CreatedAt, loc))
		if r.CompletedAt != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("J%d", row), fmtDate(*r.CompletedAt, loc))
		}
	}

	filename := fmt.Sprintf("redist_requests_%d.xlsx", time.Now().Unix())
	path := filepath.Join(os.TempDir(), filename)
	return path, f.SaveAs(path)
}

// доступ из диспетчера
func GetEditQtyState(chatID int64) (int64, bool) {
	id, ok := editQtyStates[chatID]
	return id, ok
}

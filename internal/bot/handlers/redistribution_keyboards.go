package handlers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/bot/shared/fsmutil"
	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/wbapi"
)

const (
	redistPageSize    = 5
	redistNameMaxLen  = 25
	redistRegionHints = 3 // рун в подсказке региона
)

var redistQtyDeltas = []int{1, 10, 50, 100}

func redistBackCancelRow() []tgbotapi.InlineKeyboardButton {
	return fsmutil.BackCancelRow("redist_back", "redist_cancel")
}

// truncateRunes обрезает строку до max рун с многоточием.
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// clampPage приводит номер страницы к допустимому диапазону для n элементов.
func clampPage(page, n int) int {
	if n <= 0 {
		return 0
	}
	maxPage := (n - 1) / redistPageSize
	if page < 0 {
		return 0
	}
	if page > maxPage {
		return maxPage
	}
	return page
}

// redistSkuRows — страница списка артикулов. Кнопки ссылаются на глобальный
// индекс в отсортированном списке, чтобы выбор не зависел от страницы.
// Возвращает строки и фактическую (возможно подрезанную) страницу.
func redistSkuRows(summaries []*models.SkuStockSummary, page int) ([][]tgbotapi.InlineKeyboardButton, int) {
	page = clampPage(page, len(summaries))
	start := page * redistPageSize
	end := start + redistPageSize
	if end > len(summaries) {
		end = len(summaries)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := start; i < end; i++ {
		g := summaries[i]
		name := g.ProductName
		if name == "" {
			name = g.Sku
		}
		label := fmt.Sprintf("%s — %d шт. · %d скл.",
			truncateRunes(name, redistNameMaxLen), g.TotalQuantity, len(g.Warehouses))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("redist_sku:%d", i)),
		))
	}

	totalPages := (len(summaries) + redistPageSize - 1) / redistPageSize
	if totalPages > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if page > 0 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("redist_page:%d", page-1)))
		}
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d/%d", page+1, totalPages), "redist_noop"))
		if end < len(summaries) {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("redist_page:%d", page+1)))
		}
		rows = append(rows, nav)
	}
	rows = append(rows, redistBackCancelRow())
	return rows, page
}

// redistSourceRows — склады-источники с доступным остатком; пустые не показываем.
func redistSourceRows(items []models.StockItem) [][]tgbotapi.InlineKeyboardButton {
	sorted := make([]models.StockItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Available() > sorted[j].Available() })

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, it := range sorted {
		if it.Available() <= 0 {
			continue
		}
		// Имя склада: справочник → имя из API остатков → числовой id.
		name := it.WarehouseName
		if w, ok := wbapi.PopularWarehouses[it.WarehouseID]; ok {
			name = w.Name
		}
		if name == "" {
			name = fmt.Sprintf("Склад %d", it.WarehouseID)
		}
		label := fmt.Sprintf("📦 %s — %d шт.", truncateRunes(name, redistNameMaxLen), it.Available())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("redist_src:%d", it.WarehouseID)),
		))
	}
	rows = append(rows, redistBackCancelRow())
	return rows
}

// regionHint — короткая пометка региона в кнопке склада.
func regionHint(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return ""
	}
	r := []rune(region)
	if len(r) > redistRegionHints {
		r = r[:redistRegionHints]
	}
	return strings.ToUpper(string(r))
}

// redistTargetRows — склады назначения; источник исключается.
func redistTargetRows(warehouses []models.Warehouse, sourceID int64) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, w := range warehouses {
		if w.ID == sourceID {
			continue
		}
		label := "🎯 " + truncateRunes(w.Name, redistNameMaxLen)
		if hint := regionHint(w.Region); hint != "" {
			label += " · " + hint
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("redist_dst:%d", w.ID)),
		))
	}
	rows = append(rows, redistBackCancelRow())
	return rows
}

// redistQtyRows — клавиатура подбора количества. Показываем только те
// кнопки, которые не выводят значение за пределы [0, available].
func redistQtyRows(current, available int) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton

	var plus []tgbotapi.InlineKeyboardButton
	for _, d := range redistQtyDeltas {
		if current+d <= available {
			plus = append(plus, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("+%d", d), fmt.Sprintf("redist_qty_add:%d", d)))
		}
	}
	if len(plus) > 0 {
		rows = append(rows, plus)
	}

	var minus []tgbotapi.InlineKeyboardButton
	for _, d := range redistQtyDeltas {
		if current-d >= 0 {
			minus = append(minus, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("-%d", d), fmt.Sprintf("redist_qty_add:-%d", d)))
		}
	}
	if len(minus) > 0 {
		rows = append(rows, minus)
	}

	var extremes []tgbotapi.InlineKeyboardButton
	if current < available {
		extremes = append(extremes, tgbotapi.NewInlineKeyboardButtonData("MAX", "redist_qty_max"))
	}
	if current > 0 {
		extremes = append(extremes, tgbotapi.NewInlineKeyboardButtonData("MIN", "redist_qty_min"))
	}
	if len(extremes) > 0 {
		rows = append(rows, extremes)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏️ Ввести вручную", "redist_qty_manual"),
	))
	if current > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Далее ➡️", "redist_qty_next"),
		))
	}
	rows = append(rows, redistBackCancelRow())
	return rows
}

func redistConfirmRows() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Создать заявку", "redist_confirm"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Начать заново", "redist_restart"),
		),
		redistBackCancelRow(),
	}
}

// parseManualQty — ручной ввод количества: только целое в [1, available].
func parseManualQty(text string, available int) (int, bool) {
	q, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || q < 1 || q > available {
		return 0, false
	}
	return q, true
}

func redistQtyText(current, available int) string {
	return fmt.Sprintf("Сколько перемещаем?\n\nВыбрано: <b>%d</b> шт.\nДоступно на складе: %d шт.", current, available)
}

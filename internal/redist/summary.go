package redist

import (
	"fmt"
	"html"
	"strings"
)

// FormatSummary — текст подтверждения заявки для шага «Подтвердить».
func FormatSummary(d *Draft) string {
	var b strings.Builder
	b.WriteString("📋 <b>Проверьте заявку на перемещение</b>\n\n")
	fmt.Fprintf(&b, "Артикул: <b>%s</b>\n", html.EscapeString(d.Sku))
	if d.ProductName != "" {
		fmt.Fprintf(&b, "Товар: %s\n", html.EscapeString(d.ProductName))
	}
	fmt.Fprintf(&b, "Откуда: 📦 %s\n", html.EscapeString(d.SourceWarehouseName))
	fmt.Fprintf(&b, "Куда: 🎯 %s\n", html.EscapeString(d.TargetWarehouseName))
	fmt.Fprintf(&b, "Количество: <b>%d</b> шт.\n\n", d.Quantity)
	b.WriteString("Создать заявку?")
	return b.String()
}

// FormatResult — сообщение об итоге подтверждения.
func FormatResult(r *Result) string {
	switch {
	case r.SupplyID != "":
		return fmt.Sprintf("✅ Поставка создана!\n\nНомер поставки: <b>%s</b>\nЗаявка №%d сохранена в истории.",
			html.EscapeString(r.SupplyID), r.RequestID)
	default:
		return fmt.Sprintf("🕐 Заявка №%d создана.\n\nНа складе назначения пока нет свободной приёмки — бот сам создаст поставку, как только появится слот.", r.RequestID)
	}
}

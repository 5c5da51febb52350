package handlers

import (
	"fmt"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

func makeSummaries(n int) []*models.SkuStockSummary {
	out := make([]*models.SkuStockSummary, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &models.SkuStockSummary{
			Sku:           fmt.Sprintf("SKU-%02d", i),
			ProductName:   fmt.Sprintf("Товар %02d", i),
			TotalQuantity: 1000 - i,
		})
	}
	return out
}

func flatData(rows [][]tgbotapi.InlineKeyboardButton) []string {
	var out []string
	for _, row := range rows {
		for _, b := range row {
			out = append(out, *b.CallbackData)
		}
	}
	return out
}

func hasData(rows [][]tgbotapi.InlineKeyboardButton, data string) bool {
	for _, d := range flatData(rows) {
		if d == data {
			return true
		}
	}
	return false
}

func TestRedistSkuRows(t *testing.T) {
	t.Run("first_page_has_five_items_and_only_next", func(t *testing.T) {
		rows, page := redistSkuRows(makeSummaries(12), 0)
		if page != 0 {
			t.Fatalf("страница: ожидали 0, получили %d", page)
		}
		// 5 артикулов + навигация + back/cancel
		if len(rows) != 7 {
			t.Fatalf("строк: ожидали 7, получили %d", len(rows))
		}
		if hasData(rows, "redist_page:-1") {
			t.Fatal("на первой странице не должно быть кнопки «назад по страницам»")
		}
		if !hasData(rows, "redist_page:1") {
			t.Fatal("ожидали кнопку следующей страницы")
		}
		if !hasData(rows, "redist_noop") {
			t.Fatal("ожидали индикатор страницы в навигации")
		}
		nav := rows[5]
		if nav[0].Text != "1/3" {
			t.Fatalf("индикатор страницы: ожидали 1/3, получили %q", nav[0].Text)
		}
	})

	t.Run("last_page_truncated_and_only_prev", func(t *testing.T) {
		rows, page := redistSkuRows(makeSummaries(12), 2)
		if page != 2 {
			t.Fatalf("страница: ожидали 2, получили %d", page)
		}
		// 2 оставшихся артикула + навигация + back/cancel
		if len(rows) != 4 {
			t.Fatalf("строк: ожидали 4, получили %d", len(rows))
		}
		if !hasData(rows, "redist_page:1") || hasData(rows, "redist_page:3") {
			t.Fatal("на последней странице должна быть только кнопка назад")
		}
	})

	t.Run("page_out_of_range_clamped", func(t *testing.T) {
		if _, page := redistSkuRows(makeSummaries(12), 99); page != 2 {
			t.Fatalf("ожидали подрезку до 2, получили %d", page)
		}
		if _, page := redistSkuRows(makeSummaries(12), -5); page != 0 {
			t.Fatalf("ожидали подрезку до 0, получили %d", page)
		}
	})

	t.Run("single_page_has_no_nav", func(t *testing.T) {
		rows, _ := redistSkuRows(makeSummaries(3), 0)
		if len(rows) != 4 { // 3 артикула + back/cancel
			t.Fatalf("строк: ожидали 4, получили %d", len(rows))
		}
	})

	t.Run("long_name_truncated", func(t *testing.T) {
		s := []*models.SkuStockSummary{{
			Sku:           "SKU-LONG",
			ProductName:   strings.Repeat("Д", 40),
			TotalQuantity: 5,
			Warehouses:    []models.StockItem{{WarehouseID: 507, Quantity: 5}},
		}}
		rows, _ := redistSkuRows(s, 0)
		label := rows[0][0].Text
		nameRunes := []rune(strings.TrimSuffix(label, " — 5 шт. · 1 скл."))
		if len(nameRunes) > redistNameMaxLen {
			t.Fatalf("название в кнопке длиннее %d рун: %q", redistNameMaxLen, label)
		}
		if !strings.Contains(label, "…") {
			t.Fatalf("ожидали многоточие в обрезанном названии: %q", label)
		}
	})
}

func TestRedistSourceRows(t *testing.T) {
	items := []models.StockItem{
		{WarehouseID: 507, WarehouseName: "Подольск", Quantity: 10, InWayToClient: 10}, // доступно 0
		{WarehouseID: 117501, WarehouseName: "Коледино", Quantity: 50, InWayToClient: 13},
		{WarehouseID: 686, WarehouseName: "Новосибирск", Quantity: 80, InWayToClient: 0},
	}

	t.Run("zero_available_hidden", func(t *testing.T) {
		rows := redistSourceRows(items)
		if hasData(rows, "redist_src:507") {
			t.Fatal("склад с нулевым доступным остатком не должен попадать в кнопки")
		}
		if !hasData(rows, "redist_src:117501") || !hasData(rows, "redist_src:686") {
			t.Fatal("ожидали оба склада с остатком")
		}
	})

	t.Run("sorted_by_available_desc", func(t *testing.T) {
		rows := redistSourceRows(items)
		if *rows[0][0].CallbackData != "redist_src:686" {
			t.Fatalf("первым должен идти склад с наибольшим остатком, получили %s", *rows[0][0].CallbackData)
		}
	})

	t.Run("available_excludes_in_way_to_client", func(t *testing.T) {
		rows := redistSourceRows(items)
		var koledino string
		for _, row := range rows {
			for _, b := range row {
				if *b.CallbackData == "redist_src:117501" {
					koledino = b.Text
				}
			}
		}
		if !strings.Contains(koledino, "37 шт.") {
			t.Fatalf("доступно должно быть 50-13=37, кнопка: %q", koledino)
		}
	})

	t.Run("all_empty_leaves_only_back_cancel", func(t *testing.T) {
		rows := redistSourceRows([]models.StockItem{
			{WarehouseID: 1, Quantity: 3, InWayToClient: 5},
		})
		if len(rows) != 1 {
			t.Fatalf("ожидали только строку back/cancel, получили %d строк", len(rows))
		}
	})
}

func TestRedistTargetRows(t *testing.T) {
	warehouses := []models.Warehouse{
		{ID: 117501, Name: "Коледино", Region: "Московская область"},
		{ID: 507, Name: "Подольск", Region: "Московская область"},
		{ID: 686, Name: "Новосибирск", Region: "Новосибирская область"},
	}

	t.Run("source_excluded", func(t *testing.T) {
		rows := redistTargetRows(warehouses, 117501)
		if hasData(rows, "redist_dst:117501") {
			t.Fatal("склад-источник не должен предлагаться как назначение")
		}
		if !hasData(rows, "redist_dst:507") || !hasData(rows, "redist_dst:686") {
			t.Fatal("остальные склады должны остаться")
		}
	})

	t.Run("region_hint_short", func(t *testing.T) {
		rows := redistTargetRows(warehouses, 0)
		for _, row := range rows {
			for _, b := range row {
				if !strings.HasPrefix(*b.CallbackData, "redist_dst:") {
					continue
				}
				parts := strings.Split(b.Text, " · ")
				if len(parts) != 2 {
					t.Fatalf("ожидали подсказку региона в кнопке: %q", b.Text)
				}
				if n := len([]rune(parts[1])); n > redistRegionHints {
					t.Fatalf("подсказка региона длиннее %d рун: %q", redistRegionHints, parts[1])
				}
			}
		}
	})
}

func TestRedistQtyRows(t *testing.T) {
	t.Run("zero_current", func(t *testing.T) {
		rows := redistQtyRows(0, 37)
		if !hasData(rows, "redist_qty_add:1") || !hasData(rows, "redist_qty_add:10") {
			t.Fatal("ожидали +1 и +10")
		}
		if hasData(rows, "redist_qty_add:50") || hasData(rows, "redist_qty_add:100") {
			t.Fatal("+50/+100 выводят за доступный остаток 37")
		}
		if hasData(rows, "redist_qty_add:-1") {
			t.Fatal("минусовые кнопки при нуле не нужны")
		}
		if !hasData(rows, "redist_qty_max") {
			t.Fatal("MAX должен быть при current < available")
		}
		if hasData(rows, "redist_qty_min") {
			t.Fatal("MIN не нужен при нуле")
		}
		if hasData(rows, "redist_qty_next") {
			t.Fatal("Далее недоступно при нулевом количестве")
		}
	})

	t.Run("three_plus_ten_from_zero", func(t *testing.T) {
		// +10 три раза при available=37: каждая промежуточная клавиатура
		// обязана предлагать +10, итог 30, MAX ещё доступен.
		current, available := 0, 37
		for i := 0; i < 3; i++ {
			if !hasData(redistQtyRows(current, available), "redist_qty_add:10") {
				t.Fatalf("на шаге %d кнопка +10 должна быть доступна (current=%d)", i, current)
			}
			current += 10
		}
		if current != 30 {
			t.Fatalf("ожидали 30, получили %d", current)
		}
		rows := redistQtyRows(current, available)
		if !hasData(rows, "redist_qty_max") {
			t.Fatal("MAX должен остаться: 30 < 37")
		}
		if hasData(rows, "redist_qty_add:10") {
			t.Fatal("+10 уже выводит за 37")
		}
		if !hasData(rows, "redist_qty_add:1") {
			t.Fatal("+1 ещё допустим: 31 <= 37")
		}
	})

	t.Run("at_max", func(t *testing.T) {
		rows := redistQtyRows(37, 37)
		if hasData(rows, "redist_qty_max") {
			t.Fatal("MAX не нужен, когда уже максимум")
		}
		if !hasData(rows, "redist_qty_min") || !hasData(rows, "redist_qty_next") {
			t.Fatal("MIN и Далее должны быть доступны")
		}
		for _, d := range redistQtyDeltas {
			if hasData(rows, fmt.Sprintf("redist_qty_add:%d", d)) {
				t.Fatalf("+%d недопустим на максимуме", d)
			}
		}
	})

	t.Run("manual_always_present", func(t *testing.T) {
		for _, cur := range []int{0, 5, 37} {
			if !hasData(redistQtyRows(cur, 37), "redist_qty_manual") {
				t.Fatalf("кнопка ручного ввода должна быть всегда (current=%d)", cur)
			}
		}
	})
}

func TestParseManualQty(t *testing.T) {
	cases := []struct {
		in        string
		available int
		want      int
		ok        bool
	}{
		{"25", 37, 25, true},
		{" 37 ", 37, 37, true},
		{"1", 37, 1, true},
		{"38", 37, 0, false}, // больше доступного — не подрезаем, отклоняем
		{"0", 37, 0, false},
		{"-5", 37, 0, false},
		{"abc", 37, 0, false},
		{"2.5", 37, 0, false},
		{"", 37, 0, false},
	}
	for _, c := range cases {
		got, ok := parseManualQty(c.in, c.available)
		if got != c.want || ok != c.ok {
			t.Fatalf("parseManualQty(%q, %d) = (%d, %v), ожидали (%d, %v)",
				c.in, c.available, got, ok, c.want, c.ok)
		}
	}
}

func TestRegionHint(t *testing.T) {
	cases := map[string]string{
		"Московская область": "МОС",
		"Татарстан":          "ТАТ",
		"":                   "",
		"Юг":                 "ЮГ",
	}
	for in, want := range cases {
		if got := regionHint(in); got != want {
			t.Fatalf("regionHint(%q) = %q, ожидали %q", in, got, want)
		}
	}
}

package redist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wbredist/wb-redist-bot/internal/wbapi"
)

func TestDraftReady(t *testing.T) {
	full := Draft{
		Sku:               "ART-001",
		SourceWarehouseID: 117501,
		TargetWarehouseID: 686,
		Quantity:          5,
	}
	if !full.Ready() {
		t.Fatal("полный черновик должен быть готов")
	}

	cases := map[string]func(d *Draft){
		"no_sku":      func(d *Draft) { d.Sku = "" },
		"no_source":   func(d *Draft) { d.SourceWarehouseID = 0 },
		"no_target":   func(d *Draft) { d.TargetWarehouseID = 0 },
		"no_quantity": func(d *Draft) { d.Quantity = 0 },
	}
	for name, strip := range cases {
		t.Run(name, func(t *testing.T) {
			d := full
			strip(&d)
			if d.Ready() {
				t.Fatal("неполный черновик не должен быть готов")
			}
		})
	}
}

func TestFormatSummary_EscapesHTML(t *testing.T) {
	d := &Draft{
		Sku:                 "ART<b>-001",
		ProductName:         "Носки & Ко",
		SourceWarehouseName: "Коледино",
		TargetWarehouseName: "Новосибирск",
		Quantity:            12,
	}
	text := FormatSummary(d)
	if strings.Contains(text, "ART<b>-001") {
		t.Fatal("разметка из артикула должна экранироваться")
	}
	if !strings.Contains(text, "&amp; Ко") {
		t.Fatal("амперсанд в названии должен экранироваться")
	}
	if !strings.Contains(text, "12") || !strings.Contains(text, "Коледино") {
		t.Fatalf("в сводке нет данных заявки: %q", text)
	}
}

func TestFormatResult(t *testing.T) {
	withSupply := FormatResult(&Result{RequestID: 7, SupplyID: "WB-42"})
	if !strings.Contains(withSupply, "WB-42") || !strings.Contains(withSupply, "№7") {
		t.Fatalf("итог с поставкой: %q", withSupply)
	}

	queued := FormatResult(&Result{RequestID: 8})
	if !strings.Contains(queued, "№8") || !strings.Contains(queued, "слот") {
		t.Fatalf("итог без слота: %q", queued)
	}
}

func TestTimedOut(t *testing.T) {
	if !timedOut(context.DeadlineExceeded) {
		t.Fatal("deadline — неизвестный исход")
	}
	if !timedOut(context.Canceled) {
		t.Fatal("отмена контекста во время ретраев — неизвестный исход")
	}
	if !timedOut(&wbapi.APIError{Kind: wbapi.KindNetwork}) {
		t.Fatal("сетевой обрыв — неизвестный исход")
	}
	if timedOut(&wbapi.APIError{Kind: wbapi.KindValidation}) {
		t.Fatal("ошибка валидации — известный исход")
	}
	if timedOut(errors.New("boom")) {
		t.Fatal("прочие ошибки — известный исход")
	}
}

func TestFindExistingSupply(t *testing.T) {
	reqAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	name := wbapi.SupplyName("ART-001", "Казань")
	supplies := []wbapi.Supply{
		{ID: "WB-GI-1", Name: wbapi.SupplyName("ART-002", "Казань"), CreatedAt: reqAt.Add(time.Minute)},
		{ID: "WB-GI-2", Name: name, CreatedAt: reqAt.Add(-time.Hour)}, // прошлое перемещение того же артикула
		{ID: "WB-GI-3", Name: name, CreatedAt: reqAt.Add(30 * time.Second)},
	}

	id, ok := findExistingSupply(supplies, name, reqAt)
	if !ok || id != "WB-GI-3" {
		t.Fatalf("ожидали WB-GI-3, получили %q ok=%v", id, ok)
	}

	if _, ok := findExistingSupply(supplies, wbapi.SupplyName("ART-003", "Казань"), reqAt); ok {
		t.Fatal("поставки с таким именем нет — совпадение ложное")
	}

	// Старая поставка с тем же именем не должна засчитываться за новую заявку.
	old := supplies[:2]
	if _, ok := findExistingSupply(old, name, reqAt); ok {
		t.Fatal("поставка старше заявки не относится к ней")
	}
}

func TestWrapUpstream(t *testing.T) {
	err := wrapUpstream(&wbapi.APIError{Kind: wbapi.KindServer, StatusCode: 502})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("ожидали ErrUpstream, получили %v", err)
	}
	if wrapUpstream(nil) != nil {
		t.Fatal("nil остаётся nil")
	}
}

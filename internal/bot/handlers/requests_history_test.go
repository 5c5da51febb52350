package handlers

import (
	"testing"
	"time"
)

func TestFmtDate(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*3600)
	at := time.Date(2026, 8, 30, 22, 30, 0, 0, time.UTC)

	if got := fmtDate(at, moscow); got != "31.08.2026 01:30" {
		t.Fatalf("дата в таймзоне пользователя: %q", got)
	}
	if got := fmtDate(at, nil); got != "30.08.2026 22:30" {
		t.Fatalf("без таймзоны время не должно сдвигаться: %q", got)
	}
}

package wbapi

import (
	"context"
	"strconv"
	"time"
)

// AcceptanceCoefficient — коэффициент приёмки склада на дату.
// Coefficient: -1 — приёмка закрыта, 0 — бесплатно, >0 — платно (множитель).
type AcceptanceCoefficient struct {
	Date        time.Time `json:"date"`
	WarehouseID int64     `json:"warehouseID"`
	Warehouse   string    `json:"warehouseName"`
	Coefficient float64   `json:"coefficient"`
	BoxTypeName string    `json:"boxTypeName"`
	BoxTypeID   int       `json:"boxTypeID"`
}

// Open — приёмка открыта и бесплатна.
func (a AcceptanceCoefficient) Open() bool {
	return a.Coefficient == 0
}

// AcceptanceCoefficients — коэффициенты приёмки по складам на ближайшие даты.
// Самый жёсткий лимит WB: 6 запросов в минуту.
func (c *Client) AcceptanceCoefficients(ctx context.Context, warehouseIDs []int64) ([]AcceptanceCoefficient, error) {
	var query map[string]string
	if len(warehouseIDs) > 0 {
		ids := ""
		for i, id := range warehouseIDs {
			if i > 0 {
				ids += ","
			}
			ids += strconv.FormatInt(id, 10)
		}
		query = map[string]string{"warehouseIDs": ids}
	}
	var out []AcceptanceCoefficient
	if err := c.get(ctx, c.cfg.SuppliesURL, "/api/v1/acceptance/coefficients", EndpointCoefficients, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FreeSlot отвечает, есть ли на складе открытая бесплатная приёмка коробов.
func FreeSlot(coefs []AcceptanceCoefficient, warehouseID int64) (time.Time, bool) {
	for _, c := range coefs {
		if c.WarehouseID == warehouseID && c.BoxTypeID == 2 && c.Open() {
			return c.Date, true
		}
	}
	return time.Time{}, false
}

package wbapi

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// SupplyItem — позиция поставки (артикул и количество).
type SupplyItem struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

// Supply — поставка из списка поставок кабинета.
type Supply struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	WarehouseID int64     `json:"warehouseId"`
	Status      int       `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type createSupplyReq struct {
	Name        string       `json:"name"`
	WarehouseID int64        `json:"warehouseId"`
	BoxTypeID   int          `json:"boxTypeId"`
	Items       []SupplyItem `json:"items"`
}

type createSupplyResp struct {
	ID string `json:"id"`
}

type listSuppliesResp struct {
	Supplies []Supply `json:"supplies"`
}

// SupplyName — детерминированное имя поставки перемещения. По нему
// список поставок сверяется с заявками, чей исход остался неизвестным.
func SupplyName(sku, warehouseName string) string {
	return fmt.Sprintf("Перемещение %s → %s", sku, warehouseName)
}

// CreateSupply создаёт поставку на склад назначения и возвращает её id.
func (c *Client) CreateSupply(ctx context.Context, sku string, warehouseID int64, warehouseName string, items []SupplyItem) (string, error) {
	req := createSupplyReq{
		Name:        SupplyName(sku, warehouseName),
		WarehouseID: warehouseID,
		BoxTypeID:   2, // короба
		Items:       items,
	}
	var resp createSupplyResp
	if err := c.post(ctx, c.cfg.SuppliesURL, "/api/v1/supplies", EndpointSupplies, req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &APIError{Kind: KindValidation, Message: "supply created without id"}
	}
	return resp.ID, nil
}

// Supplies возвращает последние поставки кабинета, свежие первыми.
func (c *Client) Supplies(ctx context.Context, limit int) ([]Supply, error) {
	if limit <= 0 {
		limit = 100
	}
	q := map[string]string{"limit": strconv.Itoa(limit), "offset": "0"}
	var resp listSuppliesResp
	if err := c.get(ctx, c.cfg.SuppliesURL, "/api/v1/supplies", EndpointSupplies, q, &resp); err != nil {
		return nil, err
	}
	return resp.Supplies, nil
}

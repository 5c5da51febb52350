package wbapi

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

type stockRow struct {
	SupplierArticle string `json:"supplierArticle"`
	Barcode         string `json:"barcode"`
	NmID            int64  `json:"nmId"`
	WarehouseID     int64  `json:"warehouseId"`
	WarehouseName   string `json:"warehouseName"`
	Quantity        int    `json:"quantity"`
	InWayToClient   int    `json:"inWayToClient"`
	InWayFromClient int    `json:"inWayFromClient"`
	Subject         string `json:"subject"`
}

// AllStocks — остатки по всем складам WB (FBW, statistics API).
func (c *Client) AllStocks(ctx context.Context) ([]models.StockItem, error) {
	var rows []stockRow
	query := map[string]string{
		"dateFrom": time.Now().Format("2006-01-02") + "T00:00:00",
	}
	if err := c.get(ctx, c.cfg.StatisticsURL, "/api/v1/supplier/stocks", EndpointStocks, query, &rows); err != nil {
		return nil, err
	}

	out := make([]models.StockItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.StockItem{
			Sku:             r.SupplierArticle,
			Barcode:         r.Barcode,
			NmID:            r.NmID,
			WarehouseID:     r.WarehouseID,
			WarehouseName:   r.WarehouseName,
			Quantity:        r.Quantity,
			InWayToClient:   r.InWayToClient,
			InWayFromClient: r.InWayFromClient,
			ProductName:     r.Subject,
		})
	}
	return out, nil
}

// StocksGroupedBySku — сводка по артикулам для старта мастера.
func (c *Client) StocksGroupedBySku(ctx context.Context) (map[string]*models.SkuStockSummary, error) {
	all, err := c.AllStocks(ctx)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*models.SkuStockSummary)
	for _, s := range all {
		g, ok := grouped[s.Sku]
		if !ok {
			g = &models.SkuStockSummary{
				Sku:         s.Sku,
				ProductName: s.ProductName,
				NmID:        s.NmID,
			}
			grouped[s.Sku] = g
		}
		g.TotalQuantity += s.Quantity
		g.Warehouses = append(g.Warehouses, s)
	}
	return grouped, nil
}

// StocksForSku — остатки одного артикула по всем складам, убывание по количеству.
func (c *Client) StocksForSku(ctx context.Context, sku string) ([]models.StockItem, error) {
	all, err := c.AllStocks(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.StockItem
	for _, s := range all {
		if s.Sku == sku {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	return out, nil
}

// FilterSummaries — поиск по подстроке артикула или названия, порядок сохраняется.
func FilterSummaries(all []*models.SkuStockSummary, query string) []*models.SkuStockSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all
	}
	var out []*models.SkuStockSummary
	for _, g := range all {
		if strings.Contains(strings.ToLower(g.Sku), query) ||
			strings.Contains(strings.ToLower(g.ProductName), query) {
			out = append(out, g)
		}
	}
	return out
}

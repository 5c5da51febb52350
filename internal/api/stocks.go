package api

import (
	"errors"
	"net/http"

	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/redist"
)

type warehouseDTO struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

func (s *Server) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses := s.svc.TargetWarehouses(r.Context())
	out := make([]warehouseDTO, 0, len(warehouses))
	for _, wh := range warehouses {
		out = append(out, warehouseDTO{ID: wh.ID, Name: wh.Name, Region: wh.Region})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type stockWarehouseDTO struct {
	WarehouseID   int64  `json:"warehouseId"`
	WarehouseName string `json:"warehouseName"`
	Quantity      int    `json:"quantity"`
	Available     int    `json:"available"`
}

type stockDTO struct {
	Sku           string              `json:"sku"`
	ProductName   string              `json:"productName,omitempty"`
	TotalQuantity int                 `json:"totalQuantity"`
	Warehouses    []stockWarehouseDTO `json:"warehouses"`
}

func (s *Server) listStocks(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	summaries, err := s.svc.StockSummaries(r.Context(), userID)
	if err != nil {
		if errors.Is(err, redist.ErrNoSupplier) {
			s.writeErr(w, http.StatusForbidden, "no active api token")
			return
		}
		s.log.Errorw("list stocks", "user", userID, "err", err)
		s.writeErr(w, http.StatusBadGateway, "wb api unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, toStockDTOs(summaries))
}

func toStockDTOs(summaries []*models.SkuStockSummary) []stockDTO {
	out := make([]stockDTO, 0, len(summaries))
	for _, g := range summaries {
		dto := stockDTO{
			Sku:           g.Sku,
			ProductName:   g.ProductName,
			TotalQuantity: g.TotalQuantity,
		}
		for _, wh := range g.Warehouses {
			dto.Warehouses = append(dto.Warehouses, stockWarehouseDTO{
				WarehouseID:   wh.WarehouseID,
				WarehouseName: wh.WarehouseName,
				Quantity:      wh.Quantity,
				Available:     wh.Available(),
			})
		}
		out = append(out, dto)
	}
	return out
}

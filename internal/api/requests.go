package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/models"
	"github.com/wbredist/wb-redist-bot/internal/redist"
)

type requestDTO struct {
	ID                  int64      `json:"id"`
	Sku                 string     `json:"sku"`
	ProductName         string     `json:"productName,omitempty"`
	SourceWarehouseID   int64      `json:"sourceWarehouseId"`
	SourceWarehouseName string     `json:"sourceWarehouseName,omitempty"`
	TargetWarehouseID   int64      `json:"targetWarehouseId"`
	TargetWarehouseName string     `json:"targetWarehouseName,omitempty"`
	Quantity            int        `json:"quantity"`
	Status              string     `json:"status"`
	SupplyID            *string    `json:"supplyId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
}

func toDTO(r *models.RedistributionRequest) requestDTO {
	return requestDTO{
		ID:                  r.ID,
		Sku:                 r.Sku,
		ProductName:         r.ProductName,
		SourceWarehouseID:   r.SourceWarehouseID,
		SourceWarehouseName: r.SourceWarehouseName,
		TargetWarehouseID:   r.TargetWarehouseID,
		TargetWarehouseName: r.TargetWarehouseName,
		Quantity:            r.Quantity,
		Status:              string(r.Status),
		SupplyID:            r.SupplyID,
		CreatedAt:           r.CreatedAt,
		CompletedAt:         r.CompletedAt,
	}
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	status := models.RequestStatus(r.URL.Query().Get("status"))

	requests, err := db.ListRequests(r.Context(), s.db, userID, status, 100)
	if err != nil {
		s.log.Errorw("list requests", "user", userID, "err", err)
		s.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]requestDTO, 0, len(requests))
	for i := range requests {
		out = append(out, toDTO(&requests[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type createRequestBody struct {
	Sku               string `json:"sku"`
	SourceWarehouseID int64  `json:"sourceWarehouseId"`
	TargetWarehouseID int64  `json:"targetWarehouseId"`
	Quantity          int    `json:"quantity"`
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var body createRequestBody
	if err := decodeBody(r, &body); err != nil {
		s.writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	if body.Sku == "" || body.SourceWarehouseID == 0 || body.TargetWarehouseID == 0 || body.Quantity <= 0 {
		s.writeErr(w, http.StatusBadRequest, "sku, sourceWarehouseId, targetWarehouseId and positive quantity are required")
		return
	}
	if body.SourceWarehouseID == body.TargetWarehouseID {
		s.writeErr(w, http.StatusBadRequest, "source and target warehouses must differ")
		return
	}

	draft := &redist.Draft{
		Sku:                 body.Sku,
		SourceWarehouseID:   body.SourceWarehouseID,
		SourceWarehouseName: s.svc.WarehouseName(r.Context(), body.SourceWarehouseID),
		TargetWarehouseID:   body.TargetWarehouseID,
		TargetWarehouseName: s.svc.WarehouseName(r.Context(), body.TargetWarehouseID),
		Quantity:            body.Quantity,
	}

	res, err := s.svc.Submit(r.Context(), userID, draft)
	if err != nil {
		var insufficient *redist.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			s.writeJSON(w, http.StatusConflict, map[string]any{
				"error":     "insufficient stock",
				"available": insufficient.Available,
			})
		case errors.Is(err, redist.ErrExhausted):
			s.writeErr(w, http.StatusConflict, "no stock left at source warehouse")
		case errors.Is(err, redist.ErrNoSupplier):
			s.writeErr(w, http.StatusForbidden, "no active api token")
		case errors.Is(err, redist.ErrUnknownOutcome):
			// Заявка записана, результат досведёт фон.
			s.writeJSON(w, http.StatusAccepted, map[string]any{
				"id":     res.RequestID,
				"status": string(models.StatusSearching),
			})
		default:
			s.log.Errorw("create request", "user", userID, "err", err)
			s.writeErr(w, http.StatusBadGateway, "wb api unavailable")
		}
		return
	}

	req, err := db.GetRequest(r.Context(), s.db, res.RequestID)
	if err != nil || req == nil {
		s.writeJSON(w, http.StatusCreated, map[string]any{"id": res.RequestID})
		return
	}
	s.writeJSON(w, http.StatusCreated, toDTO(req))
}

type updateRequestBody struct {
	Quantity int `json:"quantity"`
}

func (s *Server) updateRequest(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, "bad id")
		return
	}

	var body updateRequestBody
	if err := decodeBody(r, &body); err != nil || body.Quantity <= 0 {
		s.writeErr(w, http.StatusBadRequest, "positive quantity is required")
		return
	}

	if err := db.UpdateRequestQuantity(r.Context(), s.db, userID, id, body.Quantity); err != nil {
		s.writeErr(w, http.StatusConflict, "request is not editable")
		return
	}
	req, err := db.GetRequest(r.Context(), s.db, id)
	if err != nil || req == nil {
		s.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, toDTO(req))
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, "bad id")
		return
	}
	if err := db.CancelRequest(r.Context(), s.db, userID, id); err != nil {
		s.writeErr(w, http.StatusNotFound, "request not found or already final")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

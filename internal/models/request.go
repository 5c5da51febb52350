package models

import "time"

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusSearching RequestStatus = "searching"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// RedistributionRequest — заявка на перемещение остатков между складами.
// После создания меняются только quantity (пока pending/searching)
// и status/supply_id/completed_at (их ведёт фоновый поиск слота).
type RedistributionRequest struct {
	ID                  int64
	UserID              int64
	SupplierID          int64
	Sku                 string
	NmID                int64
	ProductName         string
	SourceWarehouseID   int64
	SourceWarehouseName string
	TargetWarehouseID   int64
	TargetWarehouseName string
	Quantity            int
	Status              RequestStatus
	SupplyID            *string
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

// Editable — можно ли ещё менять количество.
func (r *RedistributionRequest) Editable() bool {
	return r.Status == StatusPending || r.Status == StatusSearching
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

// AddRequest — сохраняет заявку; статус и момент подтверждения приходят готовыми,
// чтобы результат отправки, пришедший после отмены сессии, тоже ложился в историю.
func AddRequest(ctx context.Context, database *sql.DB, r *models.RedistributionRequest) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO redistribution_requests
			(user_id, supplier_id, sku, nm_id, product_name,
			 source_warehouse_id, source_warehouse_name,
			 target_warehouse_id, target_warehouse_name,
			 quantity, status, supply_id, completed_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10, $11, $12, $13)
		RETURNING id
	`, r.UserID, r.SupplierID, r.Sku, r.NmID, r.ProductName,
		r.SourceWarehouseID, r.SourceWarehouseName,
		r.TargetWarehouseID, r.TargetWarehouseName,
		r.Quantity, r.Status, r.SupplyID, r.CompletedAt).Scan(&id)
	return id, err
}

func GetRequest(ctx context.Context, database *sql.DB, id int64) (*models.RedistributionRequest, error) {
	row := database.QueryRowContext(ctx, selectRequest+` WHERE id = $1`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRequestQuantity — количество меняется только пока заявка pending/searching.
func UpdateRequestQuantity(ctx context.Context, database *sql.DB, userID, id int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	res, err := database.ExecContext(ctx, `
		UPDATE redistribution_requests
		SET quantity = $1
		WHERE id = $2 AND user_id = $3 AND status IN ('pending', 'searching')
	`, quantity, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("request not editable")
	}
	return nil
}

func DeleteRequest(ctx context.Context, database *sql.DB, userID, id int64) error {
	res, err := database.ExecContext(ctx, `
		DELETE FROM redistribution_requests WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("request not found")
	}
	return nil
}

// ListRequests — заявки пользователя, новые сверху; statusFilter "" = все.
func ListRequests(ctx context.Context, database *sql.DB, userID int64, statusFilter models.RequestStatus, limit int) ([]models.RedistributionRequest, error) {
	q := selectRequest + ` WHERE user_id = $1`
	args := []any{userID}
	if statusFilter != "" {
		q += ` AND status = $2`
		args = append(args, statusFilter)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RedistributionRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListRequestsByStatus — для фонового поиска слотов, без привязки к пользователю.
func ListRequestsByStatus(ctx context.Context, database *sql.DB, status models.RequestStatus, limit int) ([]models.RedistributionRequest, error) {
	rows, err := database.QueryContext(ctx,
		selectRequest+` WHERE status = $1 ORDER BY created_at LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RedistributionRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// MarkRequestSearching — pending → searching, атомарно (воркер может быть не один).
func MarkRequestSearching(ctx context.Context, database *sql.DB, id int64) (bool, error) {
	res, err := database.ExecContext(ctx, `
		UPDATE redistribution_requests SET status = 'searching'
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func CompleteRequest(ctx context.Context, database *sql.DB, id int64, supplyID string) error {
	_, err := database.ExecContext(ctx, `
		UPDATE redistribution_requests
		SET status = 'completed', supply_id = $1, completed_at = now()
		WHERE id = $2
	`, supplyID, id)
	return err
}

func CancelRequest(ctx context.Context, database *sql.DB, userID, id int64) error {
	res, err := database.ExecContext(ctx, `
		UPDATE redistribution_requests
		SET status = 'cancelled', completed_at = now()
		WHERE id = $1 AND user_id = $2 AND status IN ('pending', 'searching')
	`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("request not cancellable")
	}
	return nil
}

// RequestStatusCounts — сводка по статусам всех заявок, для /admin.
func RequestStatusCounts(ctx context.Context, database *sql.DB) (map[models.RequestStatus]int, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT status, count(*) FROM redistribution_requests GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[models.RequestStatus]int)
	for rows.Next() {
		var status models.RequestStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

const selectRequest = `
	SELECT id, user_id, supplier_id, sku, nm_id, COALESCE(product_name, ''),
	       source_warehouse_id, COALESCE(source_warehouse_name, ''),
	       target_warehouse_id, COALESCE(target_warehouse_name, ''),
	       quantity, status, supply_id, created_at, completed_at
	FROM redistribution_requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.RedistributionRequest, error) {
	var r models.RedistributionRequest
	err := row.Scan(&r.ID, &r.UserID, &r.SupplierID, &r.Sku, &r.NmID, &r.ProductName,
		&r.SourceWarehouseID, &r.SourceWarehouseName,
		&r.TargetWarehouseID, &r.TargetWarehouseName,
		&r.Quantity, &r.Status, &r.SupplyID, &r.CreatedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

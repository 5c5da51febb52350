package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

// AddSupplier — создаёт кабинет; первый кабинет пользователя становится дефолтным.
func AddSupplier(ctx context.Context, database *sql.DB, userID int64, name string, tokenID int64) (int64, error) {
	tx, err := database.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM suppliers WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO suppliers (user_id, name, token_id, is_default)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, name, tokenID, count == 0).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func GetSupplier(ctx context.Context, database *sql.DB, id int64) (*models.Supplier, error) {
	var s models.Supplier
	err := database.QueryRowContext(ctx, `
		SELECT id, user_id, name, token_id, is_default, created_at
		FROM suppliers WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.Name, &s.TokenID, &s.IsDefault, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSuppliers — кабинеты пользователя с активным токеном.
func ListSuppliers(ctx context.Context, database *sql.DB, userID int64) ([]models.Supplier, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT s.id, s.user_id, s.name, s.token_id, s.is_default, s.created_at
		FROM suppliers s
		JOIN wb_api_tokens t ON t.id = s.token_id
		WHERE s.user_id = $1 AND t.is_active
		ORDER BY s.is_default DESC, s.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Supplier
	for rows.Next() {
		var s models.Supplier
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.TokenID, &s.IsDefault, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func SetDefaultSupplier(ctx context.Context, database *sql.DB, userID, supplierID int64) error {
	tx, err := database.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE suppliers SET is_default = FALSE WHERE user_id = $1`, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE suppliers SET is_default = TRUE WHERE id = $1 AND user_id = $2`, supplierID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("supplier not found")
	}
	return tx.Commit()
}

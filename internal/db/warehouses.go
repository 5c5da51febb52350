package db

import (
	"context"
	"database/sql"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

// UpsertWarehouses — обновляет кэш реестра складов из WB API.
func UpsertWarehouses(ctx context.Context, database *sql.DB, warehouses []models.Warehouse) error {
	tx, err := database.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wb_warehouses (id, name, region, address, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			region = EXCLUDED.region,
			address = EXCLUDED.address,
			updated_at = now()
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, w := range warehouses {
		if _, err := stmt.ExecContext(ctx, w.ID, w.Name, w.Region, w.Address); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func ListWarehouses(ctx context.Context, database *sql.DB) ([]models.Warehouse, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, name, COALESCE(region, ''), COALESCE(address, '')
		FROM wb_warehouses
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Warehouse
	for rows.Next() {
		var w models.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Region, &w.Address); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

func AddToken(ctx context.Context, database *sql.DB, userID int64, name, encryptedToken string) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO wb_api_tokens (user_id, name, encrypted_token)
		VALUES ($1, $2, $3)
		RETURNING id
	`, userID, name, encryptedToken).Scan(&id)
	return id, err
}

func GetTokenByID(ctx context.Context, database *sql.DB, id int64) (*models.APIToken, error) {
	var t models.APIToken
	err := database.QueryRowContext(ctx, `
		SELECT id, user_id, name, encrypted_token, is_active, created_at, last_used
		FROM wb_api_tokens WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.Name, &t.EncryptedToken, &t.IsActive, &t.CreatedAt, &t.LastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func ListTokens(ctx context.Context, database *sql.DB, userID int64) ([]models.APIToken, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, user_id, name, encrypted_token, is_active, created_at, last_used
		FROM wb_api_tokens
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.APIToken
	for rows.Next() {
		var t models.APIToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.EncryptedToken, &t.IsActive, &t.CreatedAt, &t.LastUsed); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AnyActiveToken — любой живой токен; хватает для общих справочников
// (список складов один на всех поставщиков).
func AnyActiveToken(ctx context.Context, database *sql.DB) (*models.APIToken, error) {
	var t models.APIToken
	err := database.QueryRowContext(ctx, `
		SELECT id, user_id, name, encrypted_token, is_active, created_at, last_used
		FROM wb_api_tokens
		WHERE is_active = TRUE
		ORDER BY last_used DESC NULLS LAST
		LIMIT 1
	`).Scan(&t.ID, &t.UserID, &t.Name, &t.EncryptedToken, &t.IsActive, &t.CreatedAt, &t.LastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func DeactivateToken(ctx context.Context, database *sql.DB, userID, tokenID int64) error {
	_, err := database.ExecContext(ctx, `
		UPDATE wb_api_tokens SET is_active = FALSE
		WHERE id = $1 AND user_id = $2
	`, tokenID, userID)
	return err
}

func TouchToken(ctx context.Context, database *sql.DB, tokenID int64) error {
	_, err := database.ExecContext(ctx, `
		UPDATE wb_api_tokens SET last_used = now() WHERE id = $1
	`, tokenID)
	return err
}

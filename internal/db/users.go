package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wbredist/wb-redist-bot/internal/models"
)

// UpsertUser — регистрирует пользователя или обновляет профиль при /start.
func UpsertUser(ctx context.Context, database *sql.DB, telegramID int64, username, firstName string) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_active = now()
	`, telegramID, username, firstName)
	return err
}

func GetUserByTelegramID(ctx context.Context, database *sql.DB, telegramID int64) (*models.User, error) {
	var u models.User
	err := database.QueryRowContext(ctx, `
		SELECT id, telegram_id, username, first_name, created_at, last_active, is_active
		FROM users WHERE telegram_id = $1
	`, telegramID).Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.CreatedAt, &u.LastActive, &u.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// BrowserSession — сессия авторизации в кабинете WB для браузерного сценария.
// Телефон хранится только зашифрованным (см. миграцию 0002).
type BrowserSession struct {
	ID               int64
	UserID           int64
	PhoneEncrypted   *string
	CookiesEncrypted *string
	Status           string
	CreatedAt        time.Time
	ExpiresAt        *time.Time
}

func SaveBrowserSession(ctx context.Context, database *sql.DB, userID int64, phoneEncrypted, cookiesEncrypted string, expiresAt time.Time) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO browser_sessions (user_id, phone_encrypted, cookies_encrypted, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, phoneEncrypted, cookiesEncrypted, expiresAt).Scan(&id)
	return id, err
}

func GetActiveBrowserSession(ctx context.Context, database *sql.DB, userID int64) (*BrowserSession, error) {
	var s BrowserSession
	err := database.QueryRowContext(ctx, `
		SELECT id, user_id, phone_encrypted, cookies_encrypted, status, created_at, expires_at
		FROM browser_sessions
		WHERE user_id = $1 AND status = 'active' AND (expires_at IS NULL OR expires_at > now())
		ORDER BY created_at DESC
		LIMIT 1
	`, userID).Scan(&s.ID, &s.UserID, &s.PhoneEncrypted, &s.CookiesEncrypted, &s.Status, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func ExpireBrowserSessions(ctx context.Context, database *sql.DB) (int64, error) {
	res, err := database.ExecContext(ctx, `
		UPDATE browser_sessions SET status = 'expired'
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= now()
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

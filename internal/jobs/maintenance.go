package jobs

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/redist"
)

// RefreshWarehouses — периодическое обновление кэша реестра складов.
func RefreshWarehouses(svc *redist.Service, log *zap.SugaredLogger) Job {
	return func(ctx context.Context) error {
		if err := svc.RefreshWarehouses(ctx); err != nil {
			log.Warnw("refresh warehouses", "err", err)
			return err
		}
		return nil
	}
}

// ExpireSessions — зачистка протухших браузерных сессий.
func ExpireSessions(database *sql.DB, log *zap.SugaredLogger) Job {
	return func(ctx context.Context) error {
		n, err := db.ExpireBrowserSessions(ctx, database)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Infow("expired browser sessions", "count", n)
		}
		return nil
	}
}

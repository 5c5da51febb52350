package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/wbredist/wb-redist-bot/internal/metrics"
)

type HTTPServer struct {
	srv *http.Server
}

// StartHTTP поднимает служебный HTTP: /healthz, /metrics и API Mini App.
func StartHTTP(ctx context.Context, addr string, db *sql.DB, api http.Handler) *HTTPServer {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", metrics.Handler())
	if api != nil {
		mux.Handle("/api/", api)
	}

	// API Mini App смотрит наружу, поэтому таймауты обязательны:
	// повисший клиент не должен держать соединение бесконечно.
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		_ = srv.ListenAndServe() // закрываем аккуратно при Shutdown
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return &HTTPServer{srv: srv}
}

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/wbredist/wb-redist-bot/internal/crypto"
	"github.com/wbredist/wb-redist-bot/internal/redist"
)

// Server — REST API для Telegram Mini App. Авторизация — подписью initData.
type Server struct {
	db       *sql.DB
	svc      *redist.Service
	box      *crypto.Box
	botToken string
	log      *zap.SugaredLogger
}

func NewServer(database *sql.DB, svc *redist.Service, box *crypto.Box, botToken string, log *zap.SugaredLogger) *Server {
	return &Server{db: database, svc: svc, box: box, botToken: botToken, log: log}
}

// Handler — маршруты под /api/.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/requests", s.authMiddleware(s.listRequests))
	mux.HandleFunc("POST /api/requests", s.authMiddleware(s.createRequest))
	mux.HandleFunc("PATCH /api/requests/{id}", s.authMiddleware(s.updateRequest))
	mux.HandleFunc("DELETE /api/requests/{id}", s.authMiddleware(s.deleteRequest))
	mux.HandleFunc("GET /api/warehouses", s.authMiddleware(s.listWarehouses))
	mux.HandleFunc("GET /api/stocks", s.authMiddleware(s.listStocks))
	mux.HandleFunc("GET /api/sessions", s.authMiddleware(s.getSession))
	mux.HandleFunc("POST /api/sessions", s.authMiddleware(s.createSession))
	return mux
}

func withUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnw("write response", "err", err)
	}
}

func (s *Server) writeErr(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

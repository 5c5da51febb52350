package api

import (
	"net/http"
	"time"

	"github.com/wbredist/wb-redist-bot/internal/db"
)

const sessionDefaultTTL = 12 * time.Hour

// sessionDTO отдаёт только метаданные: телефон и cookies наружу не возвращаем.
type sessionDTO struct {
	ID         int64      `json:"id"`
	Status     string     `json:"status"`
	HasCookies bool       `json:"hasCookies"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	sess, err := db.GetActiveBrowserSession(r.Context(), s.db, userID)
	if err != nil {
		s.log.Errorw("get session", "user", userID, "err", err)
		s.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sess == nil {
		s.writeErr(w, http.StatusNotFound, "no active session")
		return
	}
	s.writeJSON(w, http.StatusOK, sessionDTO{
		ID:         sess.ID,
		Status:     sess.Status,
		HasCookies: sess.CookiesEncrypted != nil && *sess.CookiesEncrypted != "",
		CreatedAt:  sess.CreatedAt,
		ExpiresAt:  sess.ExpiresAt,
	})
}

type createSessionBody struct {
	Phone    string `json:"phone"`
	Cookies  string `json:"cookies"`
	TTLHours int    `json:"ttlHours"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var body createSessionBody
	if err := decodeBody(r, &body); err != nil {
		s.writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	if body.Phone == "" || body.Cookies == "" {
		s.writeErr(w, http.StatusBadRequest, "phone and cookies are required")
		return
	}

	ttl := sessionDefaultTTL
	if body.TTLHours > 0 {
		ttl = time.Duration(body.TTLHours) * time.Hour
	}

	phoneEnc, err := s.box.Encrypt(body.Phone)
	if err != nil {
		s.log.Errorw("encrypt session phone", "user", userID, "err", err)
		s.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	cookiesEnc, err := s.box.Encrypt(body.Cookies)
	if err != nil {
		s.log.Errorw("encrypt session cookies", "user", userID, "err", err)
		s.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	id, err := db.SaveBrowserSession(r.Context(), s.db, userID, phoneEnc, cookiesEnc, time.Now().Add(ttl))
	if err != nil {
		s.log.Errorw("save session", "user", userID, "err", err)
		s.writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

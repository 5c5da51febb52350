package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadInitData   = errors.New("bad init data")
	ErrStaleInitData = errors.New("init data expired")
)

// initDataMaxAge — сколько живёт подпись Mini App.
const initDataMaxAge = 24 * time.Hour

type initUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// ValidateInitData проверяет подпись initData Telegram WebApp и возвращает
// telegram id пользователя. Секрет подписи — HMAC-SHA256("WebAppData", токен бота).
func ValidateInitData(initData, botToken string, now time.Time) (int64, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, ErrBadInitData
	}
	gotHash := values.Get("hash")
	if gotHash == "" {
		return 0, ErrBadInitData
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(gotHash)) {
		return 0, ErrBadInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return 0, ErrBadInitData
	}
	if now.Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return 0, ErrStaleInitData
	}

	var u initUser
	if err := json.Unmarshal([]byte(values.Get("user")), &u); err != nil || u.ID == 0 {
		return 0, ErrBadInitData
	}
	return u.ID, nil
}

type ctxKey int

const userIDKey ctxKey = iota

// authMiddleware достаёт initData из заголовка и кладёт telegram id в контекст.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initData := r.Header.Get("X-Telegram-Init-Data")
		if initData == "" {
			initData = r.Header.Get("Authorization")
			initData = strings.TrimPrefix(initData, "tma ")
		}
		userID, err := ValidateInitData(initData, s.botToken, time.Now())
		if err != nil {
			s.writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(withUserID(r.Context(), userID)))
	}
}

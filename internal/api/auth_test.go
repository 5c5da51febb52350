package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"
)

const testBotToken = "1234567:test-bot-token"

// signInitData подписывает query так же, как это делает Telegram.
func signInitData(t *testing.T, values url.Values, botToken string) string {
	t.Helper()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func validInitData(t *testing.T, authDate time.Time) string {
	t.Helper()
	values := url.Values{}
	values.Set("user", `{"id":42,"first_name":"Иван","username":"ivan"}`)
	values.Set("auth_date", fmt.Sprintf("%d", authDate.Unix()))
	values.Set("query_id", "AAA111")
	return signInitData(t, values, testBotToken)
}

func TestValidateInitData(t *testing.T) {
	now := time.Now()

	t.Run("valid_signature", func(t *testing.T) {
		userID, err := ValidateInitData(validInitData(t, now), testBotToken, now)
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if userID != 42 {
			t.Fatalf("user id: ожидали 42, получили %d", userID)
		}
	})

	t.Run("wrong_bot_token", func(t *testing.T) {
		if _, err := ValidateInitData(validInitData(t, now), "another-token", now); err == nil {
			t.Fatal("подпись чужим токеном должна отклоняться")
		}
	})

	t.Run("tampered_user", func(t *testing.T) {
		data := validInitData(t, now)
		tampered := strings.Replace(data, "%22id%22%3A42", "%22id%22%3A43", 1)
		if tampered == data {
			t.Fatal("подмена не применилась")
		}
		if _, err := ValidateInitData(tampered, testBotToken, now); err == nil {
			t.Fatal("изменённые данные должны отклоняться")
		}
	})

	t.Run("expired", func(t *testing.T) {
		old := validInitData(t, now.Add(-25*time.Hour))
		if _, err := ValidateInitData(old, testBotToken, now); err == nil {
			t.Fatal("просроченная подпись должна отклоняться")
		}
	})

	t.Run("missing_hash", func(t *testing.T) {
		if _, err := ValidateInitData("auth_date=1&user=%7B%7D", testBotToken, now); err == nil {
			t.Fatal("initData без hash должен отклоняться")
		}
	})
}

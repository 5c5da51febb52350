package wbapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/wbredist/wb-redist-bot/internal/metrics"
)

// Endpoint — группа методов WB API со своим лимитом запросов в минуту.
type Endpoint string

const (
	EndpointCommon       Endpoint = "common"
	EndpointWarehouses   Endpoint = "warehouses"
	EndpointCoefficients Endpoint = "coefficients"
	EndpointStocks       Endpoint = "stocks"
	EndpointSupplies     Endpoint = "supplies"
	EndpointAcceptance   Endpoint = "acceptance"
)

// Лимиты WB (запросов в минуту); коэффициенты — самый жёсткий.
var endpointLimits = map[Endpoint]int{
	EndpointCommon:       60,
	EndpointWarehouses:   60,
	EndpointCoefficients: 6,
	EndpointStocks:       60,
	EndpointSupplies:     60,
	EndpointAcceptance:   60,
}

// tokenBucket — простейший token bucket; держим 80% от лимита WB про запас.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // токенов в секунду
	lastRefill time.Time
}

func newTokenBucket(perMinute int) *tokenBucket {
	safe := float64(perMinute) * 0.8
	if safe < 1 {
		safe = 1
	}
	return &tokenBucket{
		capacity:   safe,
		tokens:     safe,
		refillRate: safe / 60.0,
		lastRefill: time.Now(),
	}
}

// reserve возвращает, сколько ждать до следующего разрешённого запроса.
func (b *tokenBucket) reserve() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return 0
	}
	need := 1 - b.tokens
	b.tokens--
	return time.Duration(need / b.refillRate * float64(time.Second))
}

type Config struct {
	CommonURL     string
	SuppliesURL   string
	StatisticsURL string
	Timeout       time.Duration
}

// Client — HTTP клиент WB API: rate limiting по endpoint'ам,
// ретраи с экспоненциальным backoff для временных ошибок.
type Client struct {
	cfg     Config
	token   string
	http    *http.Client
	buckets map[Endpoint]*tokenBucket
}

func NewClient(cfg Config, apiToken string) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	buckets := make(map[Endpoint]*tokenBucket, len(endpointLimits))
	for ep, lim := range endpointLimits {
		buckets[ep] = newTokenBucket(lim)
	}
	return &Client{
		cfg:     cfg,
		token:   apiToken,
		http:    &http.Client{Timeout: cfg.Timeout},
		buckets: buckets,
	}
}

// Ping проверяет токен на общем API WB: годится любой ответ, кроме
// отказа в авторизации.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, c.cfg.CommonURL, "/ping", EndpointCommon, nil, nil)
}

func (c *Client) get(ctx context.Context, baseURL, path string, ep Endpoint, query map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, baseURL, path, ep, query, nil, out)
}

func (c *Client) post(ctx context.Context, baseURL, path string, ep Endpoint, body, out any) error {
	return c.do(ctx, http.MethodPost, baseURL, path, ep, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, baseURL, path string, ep Endpoint, query map[string]string, body, out any) error {
	if err := c.waitLimit(ctx, ep); err != nil {
		return err
	}

	metrics.WBRequests.WithLabelValues(string(ep)).Inc()

	backoff := retry.WithMaxRetries(3, retry.NewExponential(2*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doOnce(ctx, method, baseURL, path, query, body, out)
		if Transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		kind := string(KindNetwork)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			kind = string(apiErr.Kind)
		}
		metrics.WBErrors.WithLabelValues(string(ep), kind).Inc()
	}
	return err
}

func (c *Client) waitLimit(ctx context.Context, ep Endpoint) error {
	wait := c.buckets[ep].reserve()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) doOnce(ctx context.Context, method, baseURL, path string, query map[string]string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}

	if resp.StatusCode >= 400 {
		return classifyStatus(resp, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Kind: KindValidation, StatusCode: resp.StatusCode,
			Message: fmt.Sprintf("bad response body: %v", err)}
	}
	return nil
}

func classifyStatus(resp *http.Response, raw []byte) error {
	msg := string(raw)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &APIError{Kind: KindAuth, StatusCode: resp.StatusCode, Message: msg}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if retryAfter == 0 {
			retryAfter = 60
		}
		return &APIError{Kind: KindRateLimit, StatusCode: resp.StatusCode, Message: msg, RetryAfter: retryAfter}
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{Kind: KindNotFound, StatusCode: resp.StatusCode, Message: msg}
	case resp.StatusCode >= 500:
		return &APIError{Kind: KindServer, StatusCode: resp.StatusCode, Message: msg}
	default:
		return &APIError{Kind: KindValidation, StatusCode: resp.StatusCode, Message: msg}
	}
}


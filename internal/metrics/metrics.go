package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wbbot", Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wbbot", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wbbot", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	WBRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wbbot", Name: "wb_api_requests_total", Help: "WB API requests",
	}, []string{"endpoint"})
	WBErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wbbot", Name: "wb_api_errors_total", Help: "WB API errors",
	}, []string{"endpoint", "kind"})
	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wbbot", Name: "submissions_total", Help: "Supply submissions by outcome",
	}, []string{"outcome"})
	TelegramSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wbbot", Name: "telegram_sends_total", Help: "Outgoing telegram API calls",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, DBPing, WBRequests, WBErrors, Submissions, TelegramSends)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// Package metrics は Prometheus 向けの指標を提供します。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "storyboard"
)

const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeUnavailable = "unavailable"
	OutcomeStale       = "stale"
)

var (
	// SceneGenerationsTotal はシーン生成の結果別件数です。
	SceneGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scene",
			Name:      "generations_total",
			Help:      "Total number of scene generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// RemoteCallDuration は外部生成サービス呼び出しの所要時間です。
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Remote generation call duration in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"call", "outcome"},
	)

	// BatchRunsTotal は一括生成の実行回数です。
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Total number of pending-scene batch runs by result",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal は API リクエスト数です。
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration は API リクエストの所要時間です。
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// WebsocketClients は接続中の WebSocket クライアント数です。
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		},
	)
)

// ObserveRemoteCall は外部呼び出しの所要時間を記録します。
func ObserveRemoteCall(call, outcome string, start time.Time) {
	RemoteCallDuration.WithLabelValues(call, outcome).Observe(time.Since(start).Seconds())
}

// RecordGeneration はシーン生成の結果を記録します。
func RecordGeneration(outcome string) {
	SceneGenerationsTotal.WithLabelValues(outcome).Inc()
}

// Package observability 定义 dify2o 的 Prometheus 指标与 gin 中间件。
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UpstreamBuckets 覆盖 100ms 到 120s，Dify 的 blocking 调用可能要等完整生成结束。
var UpstreamBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal 按路由、方法与状态码分类统计 HTTP 请求。
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dify2o_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dify2o_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: UpstreamBuckets,
		},
		[]string{"route", "method"},
	)

	// StreamingConnections 是正在输出 SSE 的连接数。
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dify2o_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// UpstreamRequestsTotal 按模式（blocking/streaming）与结果统计发往 Dify 的请求。
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dify2o_upstream_requests_total",
			Help: "Requests sent to Dify",
		},
		[]string{"mode", "outcome"},
	)

	// UpstreamLatency 对 blocking 是完整响应时间，对 streaming 是拿到响应头的时间。
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dify2o_upstream_latency_seconds",
			Help:    "Dify latency",
			Buckets: UpstreamBuckets,
		},
		[]string{"mode"},
	)

	// StreamFramesTotal 按帧类型统计写出的 SSE 帧。
	StreamFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dify2o_stream_frames_total",
			Help: "SSE frames written",
		},
		[]string{"kind"},
	)

	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dify2o_tokens_total",
			Help: "Token count reported by Dify",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		UpstreamRequestsTotal,
		UpstreamLatency,
		StreamFramesTotal,
		TokensTotal,
	)
}

// Outcome 标签取值。
const (
	OutcomeOK            = "ok"
	OutcomeUpstreamError = "upstream_error"
	OutcomeTransport     = "transport_error"
)

// ObserveUpstream 记录一次 Dify 调用。
func ObserveUpstream(mode, outcome string, seconds float64) {
	UpstreamRequestsTotal.WithLabelValues(mode, outcome).Inc()
	UpstreamLatency.WithLabelValues(mode).Observe(seconds)
}

// AddTokens 累加 Dify 报告的 token 数。
func AddTokens(prompt, completion uint64) {
	if prompt > 0 {
		TokensTotal.WithLabelValues("input").Add(float64(prompt))
	}
	if completion > 0 {
		TokensTotal.WithLabelValues("output").Add(float64(completion))
	}
}

// Handler 返回默认 registry 的 /metrics handler。
func Handler() http.Handler {
	return promhttp.Handler()
}

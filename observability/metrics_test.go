package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	// 先触发一次，确保 Vec 类指标在 Gather 结果中出现
	ObserveUpstream("blocking", OutcomeOK, 0.01)
	AddTokens(1, 1)
	StreamFramesTotal.WithLabelValues("chunk").Add(0)
	RequestsTotal.WithLabelValues("/", "GET", "200").Add(0)
	RequestDuration.WithLabelValues("/", "GET").Observe(0)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	expected := map[string]bool{
		"dify2o_requests_total":               false,
		"dify2o_request_duration_seconds":     false,
		"dify2o_streaming_connections_active": false,
		"dify2o_upstream_requests_total":      false,
		"dify2o_upstream_latency_seconds":     false,
		"dify2o_stream_frames_total":          false,
		"dify2o_tokens_total":                 false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		require.True(t, found, name)
	}
}

func TestObserveUpstreamAndTokens(t *testing.T) {
	before := counterValue(t, UpstreamRequestsTotal, "streaming", OutcomeTransport)
	ObserveUpstream("streaming", OutcomeTransport, 0.2)
	require.Equal(t, before+1, counterValue(t, UpstreamRequestsTotal, "streaming", OutcomeTransport))

	in := counterValue(t, TokensTotal, "input")
	out := counterValue(t, TokensTotal, "output")
	AddTokens(10, 0)
	require.Equal(t, in+10, counterValue(t, TokensTotal, "input"))
	require.Equal(t, out, counterValue(t, TokensTotal, "output"))
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := counterValue(t, RequestsTotal, "/items/:id", "GET", "418")
	beforeUnmatched := counterValue(t, RequestsTotal, "unmatched", "GET", "404")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, before+1, counterValue(t, RequestsTotal, "/items/:id", "GET", "418"))
	require.Equal(t, beforeUnmatched+1, counterValue(t, RequestsTotal, "unmatched", "GET", "404"))
}

func TestHandlerExposesMetrics(t *testing.T) {
	StreamingConnections.Inc()
	defer StreamingConnections.Dec()
	require.GreaterOrEqual(t, gaugeValue(t, StreamingConnections), 1.0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "dify2o_streaming_connections_active"))
}

func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	require.NoError(t, c.(prometheus.Metric).Write(m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

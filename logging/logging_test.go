package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LubyRuffy/dify2o/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func TestSetupWithWriters_Fanout(t *testing.T) {
	var console, file bytes.Buffer
	logger, err := SetupWithWriters(&console, &file, "text", slog.LevelInfo)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hello", "k", "v")

	require.NotContains(t, console.String(), "hidden")
	require.Contains(t, console.String(), "msg=hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "v", line["k"])
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dify2o.log")
	logger, cleanup, err := Setup(config.LogConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, cleanup())

	_, _, err = Setup(config.LogConfig{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestFromContext_Default(t *testing.T) {
	require.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.Equal(t, logger, FromContext(WithContext(context.Background(), logger)))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger, err := SetupWithWriters(&buf, nil, "json", slog.LevelDebug)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Middleware(logger, "/healthz"))
	r.GET("/hello", func(c *gin.Context) {
		FromContext(c.Request.Context()).Info("inside handler")
		c.String(http.StatusOK, RequestID(c))
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	// 调用方传入的 request id 原样使用
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(rec, req)
	require.Equal(t, "req-1", rec.Body.String())
	require.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		require.Contains(t, l, `"request_id":"req-1"`)
	}
	require.Contains(t, lines[1], `"status":200`)

	// 没有传入时生成新的 id；skip 路径不记录访问日志
	buf.Reset()
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	require.Empty(t, buf.String())
}

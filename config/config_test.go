package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	EnvConfigPath, "HOST", "PORT", "WORKERS_NUM", "BASE_PATH",
	"DIFY_BASE_URL", "DIFY_API_KEY_FILE", "DIFY_AUTH_SOURCE", "DIFY_TIMEOUT",
	"DIFY2O_SYSTEM_FINGERPRINT", "DIFY2O_DEFAULT_USER", "DIFY2O_KEEP_ALIVE", "DIFY2O_MODELS",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "DIFY2O_METRICS",
}

// isolate 清空相关环境变量并切换到空目录，避免读到开发机上的 config.yaml。
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Defaults(), *cfg)
	require.Equal(t, "127.0.0.1:3000", cfg.Addr())
	require.Equal(t, "fp_44709d6fcb", cfg.Chat.SystemFingerprint)
	require.Equal(t, 30*time.Second, cfg.Chat.KeepAlive)
	require.Equal(t, 10*time.Second, cfg.Dify.Timeout)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "dify2o.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
dify:
  base_url: http://dify.internal/v1
  timeout: 20s
chat:
  default_user: bot
  models: [a, b]
log:
  level: debug
`), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("DIFY_TIMEOUT", "5")
	t.Setenv("DIFY2O_MODELS", "x, y,,z")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "http://dify.internal/v1", cfg.Dify.BaseURL)
	require.Equal(t, 5*time.Second, cfg.Dify.Timeout)
	require.Equal(t, "bot", cfg.Chat.DefaultUser)
	require.Equal(t, []string{"x", "y", "z"}, cfg.Chat.Models)
	require.Equal(t, "debug", cfg.Log.Level)
	// 文件中没有出现的字段保持默认值
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoad_DiscoverFromEnvAndCwd(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 4000\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.Server.Port)

	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("server:\n  port: 5000\n"), 0o600))
	t.Setenv(EnvConfigPath, other)
	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, 5000, cfg.Server.Port)
}

func TestLoad_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "abc")
	_, err := Load("")
	require.ErrorContains(t, err, "PORT")

	t.Setenv("PORT", "")
	t.Setenv("DIFY_TIMEOUT", "soon")
	_, err = Load("")
	require.ErrorContains(t, err, "DIFY_TIMEOUT")
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.Dify.BaseURL = "dify.local"
	cfg.Dify.AuthSource = "codex"
	cfg.Chat.KeepAlive = 0
	cfg.Log.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.port", "dify.base_url", "dify.auth_source", "chat.keep_alive", "log.level"} {
		require.ErrorContains(t, err, want)
	}
}

func TestParseSeconds(t *testing.T) {
	d, err := parseSeconds("10")
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, d)

	d, err = parseSeconds("1m30s")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = parseSeconds("ten")
	require.Error(t, err)
}

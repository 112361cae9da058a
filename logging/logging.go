// Package logging 基于 log/slog 组装日志：终端输出 text 或 json，可选再以 JSON 写入文件（slog-multi fanout）。
// 请求级 logger 通过 context 传递，见 WithContext/FromContext。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/LubyRuffy/dify2o/config"
	slogmulti "github.com/samber/slog-multi"
)

// Setup 按配置创建 logger，返回的 cleanup 用于关闭日志文件。
func Setup(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	console, err := newHandler(os.Stderr, cfg.Format, level)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(cfg.File) == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileHandler := slog.NewJSONHandler(file, handlerOptions(level))
	return slog.New(slogmulti.Fanout(console, fileHandler)), file.Close, nil
}

// SetupWithWriters 与 Setup 相同，但输出到指定 writer（用于测试）；file 为 nil 时不做 fanout。
func SetupWithWriters(console, file io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	h, err := newHandler(console, format, level)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return slog.New(h), nil
	}
	return slog.New(slogmulti.Fanout(h, slog.NewJSONHandler(file, handlerOptions(level)))), nil
}

func newHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.NewTextHandler(w, handlerOptions(level)), nil
	case "json":
		return slog.NewJSONHandler(w, handlerOptions(level)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02T15:04:05.000Z07:00"))
			}
			return a
		},
	}
}

// ParseLevel 解析 debug/info/warn(warning)/error。
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

type contextKey struct{}

// FromContext 返回 context 中的 logger，没有时返回 slog.Default()。
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

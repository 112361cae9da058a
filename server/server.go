// Package server 组装 dify2o 的 gin engine 并负责 http.Server 的启动与优雅退出。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/LubyRuffy/dify2o/auth"
	"github.com/LubyRuffy/dify2o/config"
	"github.com/LubyRuffy/dify2o/logging"
	"github.com/LubyRuffy/dify2o/observability"
	"github.com/LubyRuffy/dify2o/openaihttp"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Config config.Config
	// Backend 为空时按 Config.Dify 创建 dify.Client。
	Backend        openaihttp.Backend
	APIKeyProvider auth.Provider
	Logger         *slog.Logger
}

// NewEngine 返回挂好中间件与全部路由的 gin engine：
// GET /、{base}/models、{base}/chat/completions，以及开启时的 metrics 路径。
func NewEngine(opts Options) (*gin.Engine, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Middleware(logger, cfg.Metrics.Path))
	r.Use(observability.Middleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"*"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte("{}"))
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(observability.Handler()))
	}

	err := openaihttp.RegisterGinRoutes(r, openaihttp.Config{
		BasePath:          cfg.Server.BasePath,
		Backend:           opts.Backend,
		DifyBaseURL:       cfg.Dify.BaseURL,
		Timeout:           cfg.Dify.Timeout,
		APIKeyProvider:    opts.APIKeyProvider,
		SystemFingerprint: cfg.Chat.SystemFingerprint,
		DefaultUser:       cfg.Chat.DefaultUser,
		KeepAlive:         cfg.Chat.KeepAlive,
		Models:            cfg.Chat.Models,
	})
	if err != nil {
		return nil, fmt.Errorf("register routes failed: %w", err)
	}
	return r, nil
}

// Run 在 ln 上提供 handler，直到 ctx 结束后按 ShutdownTimeout 优雅关闭。
// ln 为 nil 时监听 cfg.Addr()。
func Run(ctx context.Context, cfg config.Config, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", cfg.Addr())
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
		}
	}

	// 请求 context 不继承 ctx：收到退出信号后由 Shutdown 等待进行中的请求与流自然结束。
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dify2o server listening", slog.String("addr", ln.Addr().String()), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down gracefully", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// 超时仍未结束的连接直接关闭
			logger.Warn("graceful shutdown timed out, closing connections", slog.Any("error", err))
			if closeErr := srv.Close(); closeErr != nil {
				return fmt.Errorf("close: %w", closeErr)
			}
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

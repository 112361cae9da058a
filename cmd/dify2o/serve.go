package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/LubyRuffy/dify2o/dify"
	"github.com/LubyRuffy/dify2o/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the OpenAI compatible HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if cfg.Server.WorkersNum > 0 {
		runtime.GOMAXPROCS(cfg.Server.WorkersNum)
	}
	gin.SetMode(gin.ReleaseMode)

	// 默认 key 由 keyProvider 按请求解析，客户端没有给 key 时这里的 client 不带凭证。
	client, err := dify.NewClient(dify.Config{
		BaseURL: cfg.Dify.BaseURL,
		Timeout: cfg.Dify.Timeout,
	})
	if err != nil {
		return err
	}

	engine, err := server.NewEngine(server.Options{
		Config:         *cfg,
		Backend:        client,
		APIKeyProvider: a.keyProvider,
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	local := addrForLocalClient(ln.Addr().String())
	a.logger.Info("try: curl http://"+local+cfg.Server.BasePath+"/models",
		slog.String("dify_base_url", cfg.Dify.BaseURL),
		slog.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	)
	a.logger.Info("OpenAI SDK base_url: http://" + local + cfg.Server.BasePath)

	return server.Run(ctx, *cfg, ln, engine, a.logger)
}

// addrForLocalClient 把监听地址转换成本机客户端可以直接访问的地址，通配地址替换为 127.0.0.1。
func addrForLocalClient(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return listenAddr
	}
	ip := net.ParseIP(host)
	if host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/LubyRuffy/dify2o/auth"
	"github.com/LubyRuffy/dify2o/config"
	"github.com/LubyRuffy/dify2o/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app 保存所有子命令共享的运行时状态，在 PersistentPreRunE 中初始化。
type app struct {
	configPath string
	envFile    string

	cfg         *config.Config
	logger      *slog.Logger
	closeLog    func() error
	keyProvider auth.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dify2o",
		Short: "OpenAI compatible chat completions in front of a Dify chat app",
		Long: `dify2o 把 OpenAI 风格的 /v1/chat/completions 请求转换为 Dify /chat-messages 调用，
支持 blocking 与 SSE streaming 两种模式。

配置来源依次为：内置默认值、YAML 配置文件、环境变量（可由 .env 提供）。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: $DIFY2O_CONFIG or ./config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newAskCmd(a))
	return root
}

func (a *app) init() error {
	if err := loadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	provider, err := auth.NewProvider(cfg.Dify.AuthSource, auth.Options{
		APIKey:     cfg.Dify.APIKey,
		APIKeyFile: cfg.Dify.APIKeyFile,
	})
	if err != nil {
		_ = closeLog()
		return fmt.Errorf("invalid auth source: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	a.keyProvider = provider
	return nil
}

// loadDotEnv 读取 .env，已存在的环境变量不会被覆盖；文件不存在不算错误。
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

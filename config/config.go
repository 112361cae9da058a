// Package config 负责加载 dify2o 的运行配置。
//
// 加载顺序：内置默认值 → YAML 文件 → 环境变量 → 校验。
// 环境变量沿用早期部署使用的名字（HOST、PORT、DIFY_BASE_URL、DIFY_TIMEOUT、WORKERS_NUM 等）。
package config

import (
	"time"

	"github.com/LubyRuffy/dify2o"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Dify    DifyConfig    `yaml:"dify"`
	Chat    ChatConfig    `yaml:"chat"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	// WorkersNum > 0 时设置 GOMAXPROCS。
	WorkersNum        int           `yaml:"workers_num"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type DifyConfig struct {
	BaseURL string `yaml:"base_url"`
	// APIKey/APIKeyFile 交给 auth.NewProvider 解析，AuthSource 决定读取顺序。
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"`
	AuthSource string        `yaml:"auth_source"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ChatConfig struct {
	SystemFingerprint string        `yaml:"system_fingerprint"`
	DefaultUser       string        `yaml:"default_user"`
	KeepAlive         time.Duration `yaml:"keep_alive"`
	Models            []string      `yaml:"models"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File 非空时额外以 JSON 格式写入该文件。
	File string `yaml:"file"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults 返回内置默认配置。
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              3000,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Dify: DifyConfig{
			BaseURL:    dify2o.DefaultDifyBaseURL,
			AuthSource: "auto",
			Timeout:    10 * time.Second,
		},
		Chat: ChatConfig{
			SystemFingerprint: dify2o.DefaultSystemFingerprint,
			DefaultUser:       dify2o.DefaultUser,
			KeepAlive:         dify2o.DefaultKeepAlive,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

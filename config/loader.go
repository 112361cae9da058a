package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "DIFY2O_CONFIG"

// Load 按 默认值 → YAML → 环境变量 → 校验 的顺序加载配置。
// configPath 为空时依次尝试 DIFY2O_CONFIG 与 ./config.yaml，都不存在则只使用默认值与环境变量。
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// loadYAMLFile 读取 YAML，文件中未出现的字段保持原值。
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: invalid value %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("WORKERS_NUM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WORKERS_NUM: invalid value %q", v)
		}
		cfg.Server.WorkersNum = n
	}
	if v := os.Getenv("BASE_PATH"); v != "" {
		cfg.Server.BasePath = v
	}

	if v := os.Getenv("DIFY_BASE_URL"); v != "" {
		cfg.Dify.BaseURL = v
	}
	if v := os.Getenv("DIFY_API_KEY_FILE"); v != "" {
		cfg.Dify.APIKeyFile = v
	}
	if v := os.Getenv("DIFY_AUTH_SOURCE"); v != "" {
		cfg.Dify.AuthSource = v
	}
	if v := os.Getenv("DIFY_TIMEOUT"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("DIFY_TIMEOUT: %w", err)
		}
		cfg.Dify.Timeout = d
	}

	if v := os.Getenv("DIFY2O_SYSTEM_FINGERPRINT"); v != "" {
		cfg.Chat.SystemFingerprint = v
	}
	if v := os.Getenv("DIFY2O_DEFAULT_USER"); v != "" {
		cfg.Chat.DefaultUser = v
	}
	if v := os.Getenv("DIFY2O_KEEP_ALIVE"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("DIFY2O_KEEP_ALIVE: %w", err)
		}
		cfg.Chat.KeepAlive = d
	}
	if v := os.Getenv("DIFY2O_MODELS"); v != "" {
		cfg.Chat.Models = splitList(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	if v := os.Getenv("DIFY2O_METRICS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DIFY2O_METRICS: invalid value %q", v)
		}
		cfg.Metrics.Enabled = enabled
	}
	return nil
}

// parseSeconds 接受纯数字（秒）或 Go duration 字符串（如 1m30s）。
func parseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Validate 检查配置是否可用，返回所有问题的合集。
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.WorkersNum < 0 {
		errs = append(errs, fmt.Errorf("server.workers_num must not be negative"))
	}

	if strings.TrimSpace(c.Dify.BaseURL) == "" {
		errs = append(errs, fmt.Errorf("dify.base_url is required"))
	} else if u, err := url.Parse(c.Dify.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("dify.base_url %q is not an absolute url", c.Dify.BaseURL))
	}
	switch strings.ToLower(strings.TrimSpace(c.Dify.AuthSource)) {
	case "", "auto", "config", "file", "env":
	default:
		errs = append(errs, fmt.Errorf("dify.auth_source %q is invalid (valid: auto, config, file, env)", c.Dify.AuthSource))
	}
	if c.Dify.Timeout < 0 {
		errs = append(errs, fmt.Errorf("dify.timeout must not be negative"))
	}

	if strings.TrimSpace(c.Chat.SystemFingerprint) == "" {
		errs = append(errs, fmt.Errorf("chat.system_fingerprint is required"))
	}
	if strings.TrimSpace(c.Chat.DefaultUser) == "" {
		errs = append(errs, fmt.Errorf("chat.default_user is required"))
	}
	if c.Chat.KeepAlive <= 0 {
		errs = append(errs, fmt.Errorf("chat.keep_alive must be positive"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is invalid (valid: debug, info, warn, error)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid (valid: text, json)", c.Log.Format))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /"))
	}

	return errors.Join(errs...)
}

// Addr 返回 http.Server 监听地址。
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

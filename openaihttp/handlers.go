package openaihttp

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/LubyRuffy/dify2o"
	"github.com/LubyRuffy/dify2o/auth"
	"github.com/LubyRuffy/dify2o/dify"
	"github.com/LubyRuffy/dify2o/openaiapi"
)

// Handlers 返回 /v1/models 与 /v1/chat/completions 的 net/http handler。
func Handlers(cfg Config) (modelsHandler http.HandlerFunc, chatHandler http.HandlerFunc, err error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	compat, err := newCompatHandler(compatConfig{
		Now:               time.Now,
		NewChatCompletion: openaiapi.NewChatCompletionID,
		WriteJSON:         writeJSON,
		WriteError:        writeError,
		Backend:           resolved.Backend,
		APIKeyProvider:    resolved.APIKeyProvider,
		SystemFingerprint: resolved.SystemFingerprint,
		DefaultUser:       resolved.DefaultUser,
		KeepAlive:         resolved.KeepAlive,
		Models:            resolved.Models,
	})
	if err != nil {
		return nil, nil, err
	}
	return compat.handleModels, compat.handleChatCompletions, nil
}

type resolvedConfig struct {
	BasePath          string
	Backend           Backend
	APIKeyProvider    auth.Provider
	SystemFingerprint string
	DefaultUser       string
	KeepAlive         time.Duration
	Models            []string
}

func resolveConfig(cfg Config) (resolvedConfig, error) {
	backend := cfg.Backend
	if backend == nil {
		baseURL := strings.TrimSpace(cfg.DifyBaseURL)
		if baseURL == "" {
			baseURL = dify2o.DefaultDifyBaseURL
		}
		client, err := dify.NewClient(dify.Config{
			BaseURL:    baseURL,
			HTTPClient: cfg.HTTPClient,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return resolvedConfig{}, fmt.Errorf("failed to create dify client: %w", err)
		}
		backend = client
	}

	fp := strings.TrimSpace(cfg.SystemFingerprint)
	if fp == "" {
		fp = dify2o.DefaultSystemFingerprint
	}
	user := strings.TrimSpace(cfg.DefaultUser)
	if user == "" {
		user = dify2o.DefaultUser
	}
	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = dify2o.DefaultKeepAlive
	}

	return resolvedConfig{
		BasePath:          normalizeBasePath(cfg.BasePath),
		Backend:           backend,
		APIKeyProvider:    cfg.APIKeyProvider,
		SystemFingerprint: fp,
		DefaultUser:       user,
		KeepAlive:         keepAlive,
		Models:            cfg.Models,
	}, nil
}

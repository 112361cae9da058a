package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoAPIKey 表示所有来源都没有提供 API Key。
var ErrNoAPIKey = errors.New("no dify api key available")

// Options 是 NewProvider 的输入：config 来源读 APIKey，file 来源读 APIKeyFile。
type Options struct {
	APIKey     string
	APIKeyFile string
}

// NewProvider 根据来源创建 Provider。
// source 允许：config/file/env/auto；空值按 auto 处理，auto 依次尝试 config、file、env。
func NewProvider(source string, opts Options) (Provider, error) {
	s := strings.ToLower(strings.TrimSpace(source))
	if s == "" {
		s = string(SourceAuto)
	}
	switch Source(s) {
	case SourceConfig:
		return &staticProvider{key: opts.APIKey}, nil
	case SourceFile:
		return &fileProvider{path: opts.APIKeyFile}, nil
	case SourceEnv:
		return &envProvider{}, nil
	case SourceAuto:
		return &autoProvider{providers: []Provider{
			&staticProvider{key: opts.APIKey},
			&fileProvider{path: opts.APIKeyFile},
			&envProvider{},
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported auth source: %s", source)
	}
}

type staticProvider struct {
	key string
}

func (p *staticProvider) APIKey(ctx context.Context) (string, error) {
	key := strings.TrimSpace(p.key)
	if key == "" {
		return "", fmt.Errorf("dify api key is not configured: %w", ErrNoAPIKey)
	}
	return key, nil
}

type autoProvider struct {
	providers []Provider
}

func (p *autoProvider) APIKey(ctx context.Context) (string, error) {
	errs := make([]error, 0, len(p.providers))
	for _, provider := range p.providers {
		key, err := provider.APIKey(ctx)
		if err == nil && strings.TrimSpace(key) != "" {
			return key, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", ErrNoAPIKey
}

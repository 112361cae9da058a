package auth

import "context"

// Provider 用于从不同来源读取 Dify App API Key。
type Provider interface {
	APIKey(ctx context.Context) (string, error)
}

type Source string

const (
	SourceConfig Source = "config"
	SourceFile   Source = "file"
	SourceEnv    Source = "env"
	SourceAuto   Source = "auto"
)

package openaihttp

import (
	"context"
	"net/http"
	"time"

	"github.com/LubyRuffy/dify2o/auth"
	"github.com/LubyRuffy/dify2o/dify"
	"github.com/cloudwego/eino/schema"
)

// Backend 是兼容层依赖的 Dify 能力，*dify.Client 即满足该接口。
type Backend interface {
	SendMessage(ctx context.Context, req dify.ChatMessagesRequest, opts ...dify.CallOption) (*dify.ChatMessagesResponse, error)
	StreamMessage(ctx context.Context, req dify.ChatMessagesRequest, opts ...dify.CallOption) (*schema.StreamReader[dify.StreamEvent], error)
}

type Config struct {
	// BasePath 仅用于 Gin 注册路由时拼接路径，默认 "/v1"。
	BasePath string
	// Backend 可选，nil 时用 DifyBaseURL/HTTPClient/Timeout 创建 *dify.Client。
	Backend Backend
	// DifyBaseURL Dify API 地址，默认 dify2o.DefaultDifyBaseURL。
	DifyBaseURL string
	// HTTPClient 可选，nil 时内部使用 &http.Client{}。
	HTTPClient *http.Client
	// Timeout 见 dify.Config.Timeout。
	Timeout time.Duration
	// APIKeyProvider 可选：请求没有携带 Authorization: Bearer 时，用它提供默认的 Dify App Key。
	APIKeyProvider auth.Provider
	// SystemFingerprint 默认 dify2o.DefaultSystemFingerprint。
	SystemFingerprint string
	// DefaultUser 请求未指定 user 时使用，默认 dify2o.DefaultUser。
	DefaultUser string
	// KeepAlive SSE 心跳间隔与 retry 提示，默认 dify2o.DefaultKeepAlive。
	KeepAlive time.Duration
	// Models /v1/models 返回的模型名。
	Models []string
}

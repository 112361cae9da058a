package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ErrTimeout 表示在 Config.Timeout 内没有拿到 Dify 的响应头（streaming）或完整响应（blocking）。
var ErrTimeout = errors.New("dify request timed out")

type Config struct {
	// BaseURL 形如 https://api.dify.ai/v1，请求会发往 BaseURL + "/chat-messages"。
	BaseURL string
	// APIKey 是默认凭证，可以被 WithBearerToken 按请求覆盖。
	APIKey     string
	HTTPClient *http.Client
	// Timeout 为 0 时不限制。streaming 模式只约束建立连接与返回响应头的时间。
	Timeout   time.Duration
	UserAgent string
}

// Client 是 Dify /chat-messages 的客户端，可并发使用。
type Client struct {
	config Config
}

func NewClient(config Config) (*Client, error) {
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if config.BaseURL == "" {
		return nil, fmt.Errorf("dify base url is required")
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if strings.TrimSpace(config.UserAgent) == "" {
		config.UserAgent = "dify2o"
	}
	return &Client{config: config}, nil
}

type callOptions struct {
	beforeSend []func(*http.Request)
}

// CallOption 调整单次调用。
type CallOption func(*callOptions)

// WithBeforeSend 在请求发出前修改 *http.Request，例如追加 header。
func WithBeforeSend(fn func(*http.Request)) CallOption {
	return func(o *callOptions) {
		if fn != nil {
			o.beforeSend = append(o.beforeSend, fn)
		}
	}
}

// WithBearerToken 用 token 替换本次调用的 Authorization 凭证；token 为空时不生效。
func WithBearerToken(token string) CallOption {
	token = strings.TrimSpace(token)
	return WithBeforeSend(func(req *http.Request) {
		if token == "" {
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	})
}

// SendMessage 以 blocking 模式调用 /chat-messages。
// Dify 返回的结构化错误以 *APIError 返回，其余失败（网络、解码）以普通 error 返回。
func (c *Client) SendMessage(ctx context.Context, req ChatMessagesRequest, opts ...CallOption) (*ChatMessagesResponse, error) {
	req.ResponseMode = ResponseModeBlocking
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.config.Timeout, ErrTimeout)
		defer cancel()
	}

	resp, err := c.do(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out ChatMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return nil, fmt.Errorf("failed to read dify response: %w", cause)
		}
		return nil, fmt.Errorf("failed to decode dify response: %w", err)
	}
	return &out, nil
}

// StreamMessage 以 streaming 模式调用 /chat-messages。
//
// 请求的建立是同步的：连接失败或 Dify 返回错误状态码时直接返回 error，此时还没有任何事件。
// 之后事件在后台 goroutine 中解码并写入返回的 StreamReader；body 读取失败会作为 error 项送达，
// 随后流结束。调用方必须 Close 返回的 StreamReader，ctx 取消会中止底层 HTTP 请求。
func (c *Client) StreamMessage(ctx context.Context, req ChatMessagesRequest, opts ...CallOption) (*schema.StreamReader[StreamEvent], error) {
	req.ResponseMode = ResponseModeStreaming

	ctx, cancel := context.WithCancelCause(ctx)
	var timer *time.Timer
	if c.config.Timeout > 0 {
		timer = time.AfterFunc(c.config.Timeout, func() { cancel(ErrTimeout) })
	}

	resp, err := c.do(ctx, req, opts)
	if err != nil {
		cancel(nil)
		return nil, err
	}
	// Stop 返回 false 说明计时器已经触发，ctx 已带 ErrTimeout 取消，不能再交出这条流。
	if timer != nil && !timer.Stop() {
		resp.Body.Close()
		cancel(nil)
		return nil, fmt.Errorf("dify request failed: %w", ErrTimeout)
	}

	sr, sw := schema.Pipe[StreamEvent](1)
	go func() {
		defer cancel(nil)
		defer resp.Body.Close()
		defer sw.Close()

		err := readEventStream(ctx, resp.Body, func(ev StreamEvent) bool {
			return !sw.Send(ev, nil)
		})
		if err != nil {
			sw.Send(nil, fmt.Errorf("failed to read dify stream: %w", err))
		}
	}()
	return sr, nil
}

func (c *Client) do(ctx context.Context, payload ChatMessagesRequest, opts []CallOption) (*http.Response, error) {
	if payload.Inputs == nil {
		payload.Inputs = map[string]any{}
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat-messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to build dify request: %w", err)
	}
	if key := strings.TrimSpace(c.config.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if payload.ResponseMode == ResponseModeStreaming {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	for _, fn := range o.beforeSend {
		fn(req)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
			return nil, fmt.Errorf("dify request failed: %w", cause)
		}
		return nil, fmt.Errorf("dify request failed: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, decodeErrorBody(resp.StatusCode, body)
	}
	return resp, nil
}

// decodeErrorBody 只有在 body 是带 message 的 JSON 时才返回 *APIError，
// 网关返回的 HTML 等内容按传输错误处理。
func decodeErrorBody(status int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && strings.TrimSpace(apiErr.Message) != "" {
		if apiErr.Status == 0 {
			apiErr.Status = status
		}
		return &apiErr
	}
	return fmt.Errorf("dify request failed with status %d: %s", status, strings.TrimSpace(string(body)))
}

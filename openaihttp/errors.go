package openaihttp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/LubyRuffy/dify2o/dify"
	"github.com/LubyRuffy/dify2o/observability"
)

// httpError 携带明确的状态码，只用于路由层面的错误（例如 405）以及凭证不可用。
type httpError struct {
	Status  int
	Message string
	Err     error
}

func (e *httpError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func (e *httpError) Unwrap() error { return e.Err }

// ValidationError 请求不合法（空消息列表、未知 role、缺少 model、body 无法解析）。
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError Dify 返回了结构化的应用错误，Message 为 Dify 给出的原文。
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Unwrap() error { return e.Err }

// TransportError Dify 不可达、超时或响应无法解码。
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// SerializationError 响应或 chunk 无法序列化。
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string { return "failed to encode response: " + e.Err.Error() }

func (e *SerializationError) Unwrap() error { return e.Err }

// classifyBackendError 把 dify 客户端返回的错误归类为 UpstreamError 或 TransportError。
func classifyBackendError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *dify.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Message: apiErr.Error(), Err: err}
	}
	return &TransportError{Err: err}
}

func upstreamOutcome(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.As(err, &upstream):
		return observability.OutcomeUpstreamError
	default:
		return observability.OutcomeTransport
	}
}

// httpStatusFromError 非流式请求的所有失败都返回 500，只有 httpError 可以指定其他状态码。
func httpStatusFromError(err error) int {
	var httpErr *httpError
	if errors.As(err, &httpErr) && httpErr != nil && httpErr.Status != 0 {
		return httpErr.Status
	}
	return http.StatusInternalServerError
}

func httpMessageFromError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// streamErrorMessage 是流内错误帧的 message：后端相关的失败统一加 "upstream: " 前缀。
func streamErrorMessage(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return "upstream: " + upstream.Message
	}
	var serialization *SerializationError
	if errors.As(err, &serialization) {
		return "internal: " + serialization.Error()
	}
	return "upstream: " + err.Error()
}

package dify

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ResponseMode string

const (
	ResponseModeBlocking  ResponseMode = "blocking"
	ResponseModeStreaming ResponseMode = "streaming"
)

// ChatMessagesRequest 是 POST /chat-messages 的请求体。
type ChatMessagesRequest struct {
	Inputs           map[string]any `json:"inputs"`
	Query            string         `json:"query"`
	ResponseMode     ResponseMode   `json:"response_mode"`
	ConversationID   string         `json:"conversation_id,omitempty"`
	User             string         `json:"user"`
	AutoGenerateName bool           `json:"auto_generate_name"`
}

// ChatMessagesResponse 是 blocking 模式的响应体。
type ChatMessagesResponse struct {
	Event          string          `json:"event"`
	TaskID         string          `json:"task_id"`
	ID             string          `json:"id"`
	MessageID      string          `json:"message_id"`
	ConversationID string          `json:"conversation_id"`
	Mode           string          `json:"mode"`
	Answer         string          `json:"answer"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      int64           `json:"created_at"`
}

// APIError 是 Dify 返回的结构化应用错误（HTTP 4xx/5xx 的 JSON 体，或 streaming 中的 error 事件）。
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("dify request failed with status %d (%s)", e.Status, http.StatusText(e.Status))
}

package openaiapi

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
	FinishReasonStop          = "stop"
	RoleAssistant             = "assistant"
)

// ==================== OpenAI 兼容数据结构 ====================

// OpenAIMessage OpenAI 消息格式。Content 可以是字符串，也可以是 [{type:"text",text:"..."}] 数组。
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
	Name    string `json:"name,omitempty"`
}

// OpenAIChatRequest OpenAI 聊天请求格式。
//
// 除 Model/Messages/Stream/User 外的字段会被接受但不会转发给后端，保留它们只为了能识别并记录。
type OpenAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []OpenAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	User     string          `json:"user,omitempty"`

	FrequencyPenalty json.RawMessage `json:"frequency_penalty,omitempty"`
	LogitBias        json.RawMessage `json:"logit_bias,omitempty"`
	Logprobs         json.RawMessage `json:"logprobs,omitempty"`
	TopLogprobs      json.RawMessage `json:"top_logprobs,omitempty"`
	MaxTokens        json.RawMessage `json:"max_tokens,omitempty"`
	N                json.RawMessage `json:"n,omitempty"`
	PresencePenalty  json.RawMessage `json:"presence_penalty,omitempty"`
	ResponseFormat   json.RawMessage `json:"response_format,omitempty"`
	Seed             json.RawMessage `json:"seed,omitempty"`
	Stop             json.RawMessage `json:"stop,omitempty"`
	StreamOptions    json.RawMessage `json:"stream_options,omitempty"`
	Temperature      json.RawMessage `json:"temperature,omitempty"`
	TopP             json.RawMessage `json:"top_p,omitempty"`
	Tools            json.RawMessage `json:"tools,omitempty"`
	ToolChoice       json.RawMessage `json:"tool_choice,omitempty"`
	FunctionCall     json.RawMessage `json:"function_call,omitempty"`
	Functions        json.RawMessage `json:"functions,omitempty"`
}

// IgnoredFields 返回请求中出现、但不会转发给后端的字段名（按字母序）。值为 null 的字段不算出现。
func (r *OpenAIChatRequest) IgnoredFields() []string {
	fields := map[string]json.RawMessage{
		"frequency_penalty": r.FrequencyPenalty,
		"logit_bias":        r.LogitBias,
		"logprobs":          r.Logprobs,
		"top_logprobs":      r.TopLogprobs,
		"max_tokens":        r.MaxTokens,
		"n":                 r.N,
		"presence_penalty":  r.PresencePenalty,
		"response_format":   r.ResponseFormat,
		"seed":              r.Seed,
		"stop":              r.Stop,
		"stream_options":    r.StreamOptions,
		"temperature":       r.Temperature,
		"top_p":             r.TopP,
		"tools":             r.Tools,
		"tool_choice":       r.ToolChoice,
		"function_call":     r.FunctionCall,
		"functions":         r.Functions,
	}
	var out []string
	for name, raw := range fields {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OpenAIUsage OpenAI token 使用统计。
type OpenAIUsage struct {
	PromptTokens     uint64 `json:"prompt_tokens"`
	CompletionTokens uint64 `json:"completion_tokens"`
	TotalTokens      uint64 `json:"total_tokens"`
}

// OpenAIResponseMessage 是响应中的 assistant 消息，content 固定为字符串。
type OpenAIResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIChoice OpenAI 非流式响应选项。
type OpenAIChoice struct {
	Index        int                   `json:"index"`
	Message      OpenAIResponseMessage `json:"message"`
	Logprobs     any                   `json:"logprobs"`
	FinishReason *string               `json:"finish_reason"`
}

// OpenAIDelta OpenAI 流式响应的 delta（用于正确处理 omitempty）。
type OpenAIDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"` // 使用指针以便 omitempty 正确工作
}

// OpenAIChunkChoice OpenAI 流式响应选项。
type OpenAIChunkChoice struct {
	Index        int         `json:"index"`
	Delta        OpenAIDelta `json:"delta"`
	Logprobs     any         `json:"logprobs"`
	FinishReason *string     `json:"finish_reason"`
}

// OpenAIChatCompletion OpenAI 非流式响应。
type OpenAIChatCompletion struct {
	ID                string         `json:"id"`
	Object            string         `json:"object"`
	Created           int64          `json:"created"`
	Model             string         `json:"model"`
	SystemFingerprint string         `json:"system_fingerprint"`
	Choices           []OpenAIChoice `json:"choices"`
	Usage             OpenAIUsage    `json:"usage"`
}

// OpenAIChatChunk OpenAI 流式响应块。
type OpenAIChatChunk struct {
	ID                string              `json:"id"`
	Object            string              `json:"object"`
	Created           int64               `json:"created"`
	Model             string              `json:"model"`
	SystemFingerprint string              `json:"system_fingerprint"`
	Choices           []OpenAIChunkChoice `json:"choices"`
	Usage             *OpenAIUsage        `json:"usage,omitempty"`
}

// OpenAIModel OpenAI 模型信息。
type OpenAIModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// OpenAIModelList OpenAI 模型列表响应。
type OpenAIModelList struct {
	Object string        `json:"object"`
	Data   []OpenAIModel `json:"data"`
}

// ErrorResponse 是非流式请求失败时的响应体：{"error": "<message>"}。
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamError 是流内错误帧的负载：{"error": {"message": "<message>"}}。
type StreamError struct {
	Error StreamErrorBody `json:"error"`
}

type StreamErrorBody struct {
	Message string `json:"message"`
}

// ==================== 辅助函数 ====================

// NewChatCompletionID 生成聊天完成 ID，仅在后端没有给出消息 id 时使用。
func NewChatCompletionID() string {
	return "chatcmpl-" + uuid.New().String()[:8]
}

// ToChatChunk 创建流式响应块。
func ToChatChunk(id, model string, created int64, delta OpenAIDelta, finishReason *string, usage *OpenAIUsage, systemFingerprint string) OpenAIChatChunk {
	return OpenAIChatChunk{
		ID:                id,
		Object:            ObjectChatCompletionChunk,
		Created:           created,
		Model:             model,
		SystemFingerprint: systemFingerprint,
		Choices: []OpenAIChunkChoice{
			{
				Index:        0,
				Delta:        delta,
				FinishReason: finishReason,
			},
		},
		Usage: usage,
	}
}

// ToChatCompletion 创建非流式响应。
func ToChatCompletion(id, model string, created int64, content string, usage OpenAIUsage, systemFingerprint string) OpenAIChatCompletion {
	finishReason := FinishReasonStop
	return OpenAIChatCompletion{
		ID:                id,
		Object:            ObjectChatCompletion,
		Created:           created,
		Model:             model,
		SystemFingerprint: systemFingerprint,
		Choices: []OpenAIChoice{
			{
				Index: 0,
				Message: OpenAIResponseMessage{
					Role:    RoleAssistant,
					Content: content,
				},
				FinishReason: &finishReason,
			},
		},
		Usage: usage,
	}
}

package openaihttp

import (
	"context"
	"time"

	"github.com/LubyRuffy/dify2o/dify"
	"github.com/LubyRuffy/dify2o/observability"
	"github.com/LubyRuffy/dify2o/openaiapi"
)

const (
	modeBlocking  = "blocking"
	modeStreaming = "streaming"
)

// blockingCompletion 调用一次 Dify blocking 接口并合成 chat.completion 响应，失败不重试。
func (h *compatHandler) blockingCompletion(ctx context.Context, req dify.ChatMessagesRequest, model string, opts []dify.CallOption) (*openaiapi.OpenAIChatCompletion, error) {
	start := time.Now()
	resp, err := h.backend.SendMessage(ctx, req, opts...)
	err = classifyBackendError(err)
	observability.ObserveUpstream(modeBlocking, upstreamOutcome(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	usage := toOpenAIUsage(dify.ParseUsage(resp.Metadata))
	observability.AddTokens(usage.PromptTokens, usage.CompletionTokens)

	id := resp.MessageID
	if id == "" {
		id = resp.ID
	}
	if id == "" {
		id = h.newChatCompletion()
	}
	completion := openaiapi.ToChatCompletion(id, model, resp.CreatedAt, resp.Answer, usage, h.systemFingerprint)
	return &completion, nil
}

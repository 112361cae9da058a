package openaihttp

import (
	"encoding/json"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/LubyRuffy/dify2o/dify"
	"github.com/LubyRuffy/dify2o/observability"
	"github.com/LubyRuffy/dify2o/openaiapi"
	"github.com/cloudwego/eino/schema"
)

// streamMapper 把 Dify streaming 事件序列映射为 OpenAI chat.completion.chunk 的 SSE 帧序列。
type streamMapper struct {
	model             string
	systemFingerprint string
	retry             time.Duration
	// fallbackID 用于既没有 message_id 也没有事件 id 的事件。
	fallbackID string
}

// frames 返回由 preamble、body、closing 三段拼接成的惰性单次序列。
// 不论 events 如何结束（正常结束、后端错误或读取失败），最后一帧都是 data: [DONE]；
// 迭代结束或被提前终止时 events 都会被 Close。
func (m *streamMapper) frames(events *schema.StreamReader[dify.StreamEvent]) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		defer events.Close()
		if !yield(preambleFrame(m.retry)) {
			return
		}
		for {
			ev, err := events.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				// 读取失败后不会再有事件，直接进入收尾。
				if !yield(errorFrame(&TransportError{Err: err})) {
					return
				}
				break
			}
			if !yield(m.mapEvent(ev)) {
				return
			}
		}
		yield(doneFrame())
	}
}

// mapEvent 每个事件恰好产生一帧。
func (m *streamMapper) mapEvent(ev dify.StreamEvent) Frame {
	switch e := ev.(type) {
	case *dify.MessageEvent:
		return m.answerChunk(e.EventHeader, e.Answer)
	case *dify.AgentMessageEvent:
		return m.answerChunk(e.EventHeader, e.Answer)
	case *dify.MessageEndEvent:
		return m.finishChunk(e.EventHeader, e.Metadata)
	case *dify.ErrorEvent:
		return errorFrame(&UpstreamError{Message: e.Message, Err: e.APIError()})
	case nil:
		return commentFrame("skip dify message event: " + string(dify.KindUnknown))
	default:
		return commentFrame("skip dify message event: " + string(ev.Kind()))
	}
}

func (m *streamMapper) answerChunk(header dify.EventHeader, answer string) Frame {
	id, created := m.ref(header)
	content := answer
	chunk := openaiapi.ToChatChunk(id, m.model, created, openaiapi.OpenAIDelta{
		Role:    openaiapi.RoleAssistant,
		Content: &content,
	}, nil, nil, m.systemFingerprint)
	return chunkFrame(chunk)
}

func (m *streamMapper) finishChunk(header dify.EventHeader, metadata json.RawMessage) Frame {
	id, created := m.ref(header)
	usage := toOpenAIUsage(dify.ParseUsage(metadata))
	observability.AddTokens(usage.PromptTokens, usage.CompletionTokens)
	finishReason := openaiapi.FinishReasonStop
	chunk := openaiapi.ToChatChunk(id, m.model, created, openaiapi.OpenAIDelta{}, &finishReason, &usage, m.systemFingerprint)
	return chunkFrame(chunk)
}

func (m *streamMapper) ref(header dify.EventHeader) (string, int64) {
	id, created := header.Ref()
	if id == "" {
		id = m.fallbackID
	}
	return id, created
}

func chunkFrame(chunk openaiapi.OpenAIChatChunk) Frame {
	data, err := json.Marshal(chunk)
	if err != nil {
		return errorFrame(&SerializationError{Err: err})
	}
	return dataFrame(FrameChunk, data)
}

// errorFrame 输出 data: {"error":{"message":"..."}}。
func errorFrame(err error) Frame {
	data, marshalErr := json.Marshal(openaiapi.StreamError{Error: openaiapi.StreamErrorBody{Message: streamErrorMessage(err)}})
	if marshalErr != nil {
		data = []byte(`{"error":{"message":"internal: failed to encode error"}}`)
	}
	return dataFrame(FrameError, data)
}

func toOpenAIUsage(u dify.Usage) openaiapi.OpenAIUsage {
	return openaiapi.OpenAIUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

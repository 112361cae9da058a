package dify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type ChatModelConfig struct {
	Client *Client
	// User 是转发给 Dify 的用户标识。
	User string
	// ConversationID 非空时复用 Dify 侧会话；默认每次调用都是新会话，历史由 query 携带。
	ConversationID string
}

// ChatModel 是基于 Dify /chat-messages 的 Eino BaseChatModel 实现。
type ChatModel struct {
	config ChatModelConfig
}

var _ einoModel.BaseChatModel = (*ChatModel)(nil)

func NewChatModel(config ChatModelConfig) (*ChatModel, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("dify client is required")
	}
	if strings.TrimSpace(config.User) == "" {
		return nil, fmt.Errorf("user is required")
	}
	return &ChatModel{config: config}, nil
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	req, err := m.buildRequest(input)
	if err != nil {
		return nil, err
	}
	resp, err := m.config.Client.SendMessage(ctx, req)
	if err != nil {
		return nil, err
	}
	msg := schema.AssistantMessage(resp.Answer, nil)
	msg.ResponseMeta = responseMeta(resp.Metadata)
	return msg, nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	req, err := m.buildRequest(input)
	if err != nil {
		return nil, err
	}
	events, err := m.config.Client.StreamMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	sr, sw := schema.Pipe[*schema.Message](64)
	go func() {
		defer sw.Close()
		defer events.Close()
		for {
			ev, err := events.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				sw.Send(nil, err)
				return
			}
			msg, err := eventToMessage(ev)
			if err != nil {
				sw.Send(nil, err)
				return
			}
			if msg == nil {
				continue
			}
			if closed := sw.Send(msg, nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

func (m *ChatModel) buildRequest(input []*schema.Message) (ChatMessagesRequest, error) {
	query, err := BuildQuery(input)
	if err != nil {
		return ChatMessagesRequest{}, err
	}
	return ChatMessagesRequest{
		Query:          query,
		User:           m.config.User,
		ConversationID: m.config.ConversationID,
	}, nil
}

// eventToMessage 返回 nil, nil 表示该事件不产生增量消息。
func eventToMessage(ev StreamEvent) (*schema.Message, error) {
	switch e := ev.(type) {
	case *MessageEvent:
		if e.Answer == "" {
			return nil, nil
		}
		return &schema.Message{Role: schema.Assistant, Content: e.Answer}, nil
	case *AgentMessageEvent:
		if e.Answer == "" {
			return nil, nil
		}
		return &schema.Message{Role: schema.Assistant, Content: e.Answer}, nil
	case *MessageEndEvent:
		return &schema.Message{Role: schema.Assistant, ResponseMeta: responseMeta(e.Metadata)}, nil
	case *ErrorEvent:
		return nil, e.APIError()
	default:
		return nil, nil
	}
}

func responseMeta(metadata []byte) *schema.ResponseMeta {
	usage := ParseUsage(metadata)
	return &schema.ResponseMeta{
		FinishReason: "stop",
		Usage: &schema.TokenUsage{
			PromptTokens:     int(usage.PromptTokens),
			CompletionTokens: int(usage.CompletionTokens),
			TotalTokens:      int(usage.TotalTokens),
		},
	}
}

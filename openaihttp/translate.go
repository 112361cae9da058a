package openaihttp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LubyRuffy/dify2o/dify"
	"github.com/LubyRuffy/dify2o/openaiapi"
	"github.com/cloudwego/eino/schema"
)

// BuildChatMessagesRequest 把 OpenAI chat 请求转换为 Dify /chat-messages 请求。
//
// 整个对话会被渲染进单条 query（见 dify.BuildQuery），Dify 侧不保留会话；
// user 为空时使用 defaultUser；response_mode 由 req.Stream 决定。
// 不支持的 OpenAI 参数（temperature、tools 等）被忽略。
func BuildChatMessagesRequest(req *openaiapi.OpenAIChatRequest, defaultUser string) (dify.ChatMessagesRequest, error) {
	if req == nil || len(req.Messages) == 0 {
		return dify.ChatMessagesRequest{}, &ValidationError{Message: "messages is required"}
	}
	if strings.TrimSpace(req.Model) == "" {
		return dify.ChatMessagesRequest{}, &ValidationError{Message: "model is required"}
	}

	messages, err := convertOpenAIChatMessages(req.Messages)
	if err != nil {
		return dify.ChatMessagesRequest{}, err
	}
	query, err := dify.BuildQuery(messages)
	if err != nil {
		if errors.Is(err, dify.ErrEmptyConversation) {
			return dify.ChatMessagesRequest{}, &ValidationError{Message: "messages is required", Err: err}
		}
		return dify.ChatMessagesRequest{}, err
	}

	user := strings.TrimSpace(req.User)
	if user == "" {
		user = defaultUser
	}
	mode := dify.ResponseModeBlocking
	if req.Stream {
		mode = dify.ResponseModeStreaming
	}

	return dify.ChatMessagesRequest{
		Inputs:           map[string]any{},
		Query:            query,
		ResponseMode:     mode,
		User:             user,
		AutoGenerateName: false,
	}, nil
}

// convertOpenAIChatMessages 校验 role 并把 content 统一成纯文本。
// 与 OpenAI 不同，这里不会跳过空内容的消息：历史中的每一条都要原样出现在 query 里。
func convertOpenAIChatMessages(messages []openaiapi.OpenAIMessage) ([]*schema.Message, error) {
	result := make([]*schema.Message, 0, len(messages))
	for i, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		switch role {
		case "system", "user", "assistant", "tool", "function":
		case "":
			return nil, &ValidationError{Message: fmt.Sprintf("messages[%d].role is required", i)}
		default:
			return nil, &ValidationError{Message: fmt.Sprintf("messages[%d]: unsupported role: %s", i, role)}
		}

		content, err := openAIContentToText(msg.Content)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("messages[%d]", i), Err: err}
		}
		result = append(result, &schema.Message{
			Role:    schema.RoleType(role),
			Content: content,
			Name:    msg.Name,
		})
	}
	return result, nil
}

func openAIContentToText(content any) (string, error) {
	if content == nil {
		return "", nil
	}

	if text, ok := content.(string); ok {
		return text, nil
	}

	parts, ok := content.([]interface{})
	if !ok {
		return "", fmt.Errorf("unsupported message content")
	}

	builder := strings.Builder{}
	for _, part := range parts {
		partMap, ok := part.(map[string]interface{})
		if !ok {
			continue
		}
		partType, _ := partMap["type"].(string)
		if partType != "text" && partType != "input_text" {
			continue
		}
		if textValue, ok := partMap["text"].(string); ok {
			builder.WriteString(textValue)
			continue
		}
		if textObj, ok := partMap["text"].(map[string]interface{}); ok {
			if value, ok := textObj["value"].(string); ok {
				builder.WriteString(value)
			}
		}
	}

	return builder.String(), nil
}

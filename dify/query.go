package dify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// ErrEmptyConversation 表示没有任何消息可以发送。
var ErrEmptyConversation = errors.New("conversation has no messages")

// BuildQuery 把完整对话渲染为 Dify 的单条 query：
// 除最后一条外的消息按 `role: content` 逐行写入历史块，最后一条消息的内容原样作为问题。
//
//	here is our talk history:
//	'''
//	system: ...
//	user: ...
//	'''
//
//	here is my question:
//	<last content>
func BuildQuery(messages []*schema.Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrEmptyConversation
	}

	last := messages[len(messages)-1]
	history := make([]string, 0, len(messages)-1)
	for _, msg := range messages[:len(messages)-1] {
		if msg == nil {
			continue
		}
		history = append(history, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}

	question := ""
	if last != nil {
		question = last.Content
	}

	var b strings.Builder
	b.WriteString("here is our talk history:\n'''\n")
	b.WriteString(strings.Join(history, "\n"))
	b.WriteString("\n'''\n\nhere is my question:\n")
	b.WriteString(question)
	return b.String(), nil
}

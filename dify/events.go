package dify

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// ErrMalformedEvent 表示 SSE data 负载不是合法 JSON。
var ErrMalformedEvent = errors.New("malformed dify event payload")

type EventKind string

const (
	KindMessage      EventKind = "message"
	KindAgentMessage EventKind = "agent_message"
	KindMessageEnd   EventKind = "message_end"
	KindError        EventKind = "error"
	KindPing         EventKind = "ping"
	KindUnknown      EventKind = "unknown"
)

// EventBase 是大部分 streaming 事件都带有的消息元信息，缺失时为 nil。
type EventBase struct {
	MessageID      string
	ConversationID string
	CreatedAt      int64
}

// EventHeader 被所有具体事件内嵌。
type EventHeader struct {
	// ID 是事件自身的 id（没有时取 task_id）。
	ID   string
	Base *EventBase
}

// Ref 返回该事件对应的消息 id 与创建时间：优先 base.message_id / base.created_at，
// 否则退回事件 id 与 0。
func (h EventHeader) Ref() (messageID string, createdAt int64) {
	if h.Base != nil {
		return h.Base.MessageID, h.Base.CreatedAt
	}
	return h.ID, 0
}

// StreamEvent 是 Dify streaming 事件的封闭联合。
type StreamEvent interface {
	Kind() EventKind
	isStreamEvent()
}

type MessageEvent struct {
	EventHeader
	Answer string
}

type AgentMessageEvent struct {
	EventHeader
	Answer string
}

type MessageEndEvent struct {
	EventHeader
	// Metadata 原样保留，usage 的解析见 ParseUsage。
	Metadata json.RawMessage
}

type ErrorEvent struct {
	EventHeader
	Status  int
	Code    string
	Message string
}

// UnknownEvent 覆盖其余所有事件：ping、workflow_*、message_file、tts_message 等，
// 以及无法解码的负载（此时 Err 非空）。
type UnknownEvent struct {
	Name string
	Raw  json.RawMessage
	Err  error
}

func (*MessageEvent) Kind() EventKind      { return KindMessage }
func (*AgentMessageEvent) Kind() EventKind { return KindAgentMessage }
func (*MessageEndEvent) Kind() EventKind   { return KindMessageEnd }
func (*ErrorEvent) Kind() EventKind        { return KindError }
func (e *UnknownEvent) Kind() EventKind {
	if e.Name == "" {
		return KindUnknown
	}
	return EventKind(e.Name)
}

func (*MessageEvent) isStreamEvent()      {}
func (*AgentMessageEvent) isStreamEvent() {}
func (*MessageEndEvent) isStreamEvent()   {}
func (*ErrorEvent) isStreamEvent()        {}
func (*UnknownEvent) isStreamEvent()      {}

// APIError 把 error 事件转换为与 blocking 模式一致的错误类型。
func (e *ErrorEvent) APIError() *APIError {
	return &APIError{Status: e.Status, Code: e.Code, Message: e.Message}
}

type wireEvent struct {
	Event          string          `json:"event"`
	TaskID         string          `json:"task_id"`
	ID             string          `json:"id"`
	MessageID      string          `json:"message_id"`
	ConversationID string          `json:"conversation_id"`
	CreatedAt      int64           `json:"created_at"`
	Answer         string          `json:"answer"`
	Metadata       json.RawMessage `json:"metadata"`
	Status         int             `json:"status"`
	Code           string          `json:"code"`
	Message        string          `json:"message"`
}

// DecodeEvent 把一个 SSE data 负载解码为 StreamEvent，从不返回 nil。
// 只有已知事件才做完整解码，其余事件只读取 event 字段，避免无关字段的类型差异导致解码失败。
func DecodeEvent(payload []byte) StreamEvent {
	if !gjson.ValidBytes(payload) {
		return &UnknownEvent{Raw: json.RawMessage(payload), Err: ErrMalformedEvent}
	}
	name := gjson.GetBytes(payload, "event").String()
	switch EventKind(name) {
	case KindMessage, KindAgentMessage, KindMessageEnd, KindError:
	default:
		return &UnknownEvent{Name: name, Raw: json.RawMessage(payload)}
	}

	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return &UnknownEvent{Name: name, Raw: json.RawMessage(payload), Err: err}
	}

	header := EventHeader{ID: w.ID}
	if header.ID == "" {
		header.ID = w.TaskID
	}
	if w.MessageID != "" {
		header.Base = &EventBase{
			MessageID:      w.MessageID,
			ConversationID: w.ConversationID,
			CreatedAt:      w.CreatedAt,
		}
	}

	switch EventKind(w.Event) {
	case KindMessage:
		return &MessageEvent{EventHeader: header, Answer: w.Answer}
	case KindAgentMessage:
		return &AgentMessageEvent{EventHeader: header, Answer: w.Answer}
	case KindMessageEnd:
		return &MessageEndEvent{EventHeader: header, Metadata: w.Metadata}
	default:
		return &ErrorEvent{EventHeader: header, Status: w.Status, Code: w.Code, Message: w.Message}
	}
}

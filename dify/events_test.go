package dify

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_Message(t *testing.T) {
	ev := DecodeEvent([]byte(`{"event":"message","task_id":"t1","id":"m1","message_id":"m1","conversation_id":"c1","answer":"Hi","created_at":1705395332}`))
	msg, ok := ev.(*MessageEvent)
	require.True(t, ok)
	require.Equal(t, "Hi", msg.Answer)
	id, created := msg.Ref()
	require.Equal(t, "m1", id)
	require.Equal(t, int64(1705395332), created)
	require.Equal(t, "c1", msg.Base.ConversationID)
}

func TestDecodeEvent_RefWithoutBase(t *testing.T) {
	// 没有 message_id 时回退到事件 id（或 task_id），created 为 0
	ev := DecodeEvent([]byte(`{"event":"agent_message","task_id":"t9","answer":"x"}`))
	msg, ok := ev.(*AgentMessageEvent)
	require.True(t, ok)
	require.Nil(t, msg.Base)
	id, created := msg.Ref()
	require.Equal(t, "t9", id)
	require.Equal(t, int64(0), created)
}

func TestDecodeEvent_MessageEndAndError(t *testing.T) {
	ev := DecodeEvent([]byte(`{"event":"message_end","id":"e1","message_id":"m1","metadata":{"usage":{"prompt_tokens":3}}}`))
	end, ok := ev.(*MessageEndEvent)
	require.True(t, ok)
	require.Equal(t, uint64(3), ParseUsage(end.Metadata).PromptTokens)

	ev = DecodeEvent([]byte(`{"event":"error","status":400,"code":"invalid_param","message":"bad"}`))
	errEv, ok := ev.(*ErrorEvent)
	require.True(t, ok)
	require.Equal(t, KindError, errEv.Kind())
	require.Equal(t, "bad", errEv.APIError().Error())
	require.Equal(t, 400, errEv.APIError().Status)
}

func TestDecodeEvent_Unknown(t *testing.T) {
	ev := DecodeEvent([]byte(`{"event":"workflow_started","data":{"status":"running"}}`))
	require.Equal(t, EventKind("workflow_started"), ev.Kind())

	ev = DecodeEvent([]byte(`not json`))
	unknown, ok := ev.(*UnknownEvent)
	require.True(t, ok)
	require.Equal(t, KindUnknown, unknown.Kind())
	require.ErrorIs(t, unknown.Err, ErrMalformedEvent)

	// 已知事件但字段类型不对，也不会中断流
	ev = DecodeEvent([]byte(`{"event":"message","answer":123}`))
	unknown, ok = ev.(*UnknownEvent)
	require.True(t, ok)
	require.Equal(t, KindMessage, unknown.Kind())
	require.Error(t, unknown.Err)
}

func collectEvents(t *testing.T, body string) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	err := readEventStream(context.Background(), strings.NewReader(body), func(ev StreamEvent) bool {
		events = append(events, ev)
		return true
	})
	require.NoError(t, err)
	return events
}

func TestReadEventStream(t *testing.T) {
	events := collectEvents(t, ""+
		"event: ping\n\n"+
		"data: {\"event\":\"message\",\"id\":\"m1\",\"answer\":\"Hel\"}\r\n\r\n"+
		": comment\n"+
		"data: {\"event\":\"message\",\"id\":\"m1\",\"answer\":\"lo\"}\n\n"+
		"data: {\"event\":\"message_end\",\"id\":\"m1\"}")

	require.Len(t, events, 4)
	require.Equal(t, KindPing, events[0].Kind())
	require.Equal(t, "Hel", events[1].(*MessageEvent).Answer)
	require.Equal(t, "lo", events[2].(*MessageEvent).Answer)
	require.Equal(t, KindMessageEnd, events[3].Kind())
}

func TestReadEventStream_StopsWhenConsumerDone(t *testing.T) {
	body := "data: {\"event\":\"message\",\"answer\":\"a\"}\n\n" +
		"data: {\"event\":\"message\",\"answer\":\"b\"}\n\n"
	calls := 0
	err := readEventStream(context.Background(), strings.NewReader(body), func(StreamEvent) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestReadEventStream_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	var events []StreamEvent
	err := readEventStream(context.Background(), &failingReader{
		data: "data: {\"event\":\"message\",\"answer\":\"a\"}\n\n",
		err:  boom,
	}, func(ev StreamEvent) bool {
		events = append(events, ev)
		return true
	})
	require.ErrorIs(t, err, boom)
	require.Len(t, events, 1)
}

func TestReadEventStream_LineTooLong(t *testing.T) {
	body := "data: {\"event\":\"message\",\"answer\":\"a\"}\n\n" +
		"data: " + strings.Repeat("x", maxEventLineSize+1) + "\n\n"
	var events []StreamEvent
	err := readEventStream(context.Background(), strings.NewReader(body), func(ev StreamEvent) bool {
		events = append(events, ev)
		return true
	})
	require.ErrorIs(t, err, bufio.ErrTooLong)
	require.Len(t, events, 1)
}

func TestReadEventStream_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := readEventStream(ctx, strings.NewReader("data: {}\n\n"), func(StreamEvent) bool { return true })
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, io.EOF)
}

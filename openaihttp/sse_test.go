package openaihttp

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameBytes(t *testing.T) {
	require.Equal(t, ": streaming chat completions\nretry: 30000\n\n", string(preambleFrame(30*time.Second).Bytes()))
	require.Equal(t, ":\n\n", string(heartbeatFrame().Bytes()))
	require.Equal(t, ": skip dify message event: ping\n\n", string(commentFrame("skip dify message event: ping").Bytes()))
	require.Equal(t, ": a\n: b\n\n", string(commentFrame("a\nb").Bytes()))
	require.Equal(t, "data: {\"a\":1}\n\n", string(dataFrame(FrameChunk, []byte(`{"a":1}`)).Bytes()))
	require.Equal(t, "data: [DONE]\n\n", string(doneFrame().Bytes()))
}

func seqOf(frames ...Frame) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for _, f := range frames {
			if !yield(f) {
				return
			}
		}
	}
}

func TestWriteEventStream_HeadersAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	err := writeEventStream(context.Background(), rec, seqOf(preambleFrame(time.Second), doneFrame()), time.Minute)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	require.True(t, rec.Flushed)
	require.Equal(t, ": streaming chat completions\nretry: 1000\n\ndata: [DONE]\n\n", rec.Body.String())
}

func TestWriteEventStream_Heartbeat(t *testing.T) {
	// 第二帧迟迟不来时，应插入心跳
	slow := func(yield func(Frame) bool) {
		if !yield(preambleFrame(time.Second)) {
			return
		}
		time.Sleep(120 * time.Millisecond)
		yield(doneFrame())
	}

	rec := httptest.NewRecorder()
	err := writeEventStream(context.Background(), rec, slow, 30*time.Millisecond)
	require.NoError(t, err)

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, ": streaming chat completions\n"))
	require.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	require.GreaterOrEqual(t, strings.Count(body, "\n:\n\n"), 1)
}

func TestWriteEventStream_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	blocking := func(yield func(Frame) bool) {
		defer close(stopped)
		if !yield(preambleFrame(time.Second)) {
			return
		}
		cancel()
		// 模拟上游继续产出；写端已经退出，yield 应返回 false
		for yield(commentFrame("more")) {
		}
	}

	rec := httptest.NewRecorder()
	err := writeEventStream(ctx, rec, blocking, time.Minute)
	require.ErrorIs(t, err, context.Canceled)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("frame iteration did not stop after cancellation")
	}
}

type failingWriter struct {
	header http.Header
}

func (w *failingWriter) Header() http.Header { return w.header }
func (w *failingWriter) WriteHeader(int)     {}
func (w *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteEventStream_WriteError(t *testing.T) {
	w := &failingWriter{header: http.Header{}}
	err := writeEventStream(context.Background(), w, seqOf(preambleFrame(time.Second), doneFrame()), time.Minute)
	require.ErrorContains(t, err, "broken pipe")
}

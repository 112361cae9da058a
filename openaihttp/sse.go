package openaihttp

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LubyRuffy/dify2o/observability"
)

// FrameKind 标识帧的类别，用于指标标签与测试断言。
type FrameKind string

const (
	FramePreamble  FrameKind = "preamble"
	FrameChunk     FrameKind = "chunk"
	FrameError     FrameKind = "error"
	FrameComment   FrameKind = "comment"
	FrameDone      FrameKind = "done"
	FrameHeartbeat FrameKind = "heartbeat"
)

// Frame 是一个完整的 SSE 事件，Bytes 的结果会被一次性写出。
type Frame struct {
	kind       FrameKind
	comment    string
	hasComment bool
	retry      time.Duration
	data       []byte
}

// Kind 返回帧的类别。
func (f Frame) Kind() FrameKind { return f.kind }

// Bytes 按 SSE 线格式编码：注释行、retry 行、data 行，以空行结尾。
func (f Frame) Bytes() []byte {
	var b bytes.Buffer
	if f.hasComment {
		for _, line := range strings.Split(f.comment, "\n") {
			b.WriteByte(':')
			if line != "" {
				b.WriteByte(' ')
				b.WriteString(line)
			}
			b.WriteByte('\n')
		}
	}
	if f.retry > 0 {
		b.WriteString("retry: ")
		b.WriteString(strconv.FormatInt(f.retry.Milliseconds(), 10))
		b.WriteByte('\n')
	}
	if f.data != nil {
		for _, line := range bytes.Split(f.data, []byte("\n")) {
			b.WriteString("data: ")
			b.Write(line)
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')
	return b.Bytes()
}

func preambleFrame(retry time.Duration) Frame {
	return Frame{kind: FramePreamble, comment: "streaming chat completions", hasComment: true, retry: retry}
}

func commentFrame(text string) Frame {
	return Frame{kind: FrameComment, comment: text, hasComment: true}
}

func dataFrame(kind FrameKind, data []byte) Frame {
	return Frame{kind: kind, data: data}
}

func doneFrame() Frame {
	return Frame{kind: FrameDone, data: []byte("[DONE]")}
}

func heartbeatFrame() Frame {
	return Frame{kind: FrameHeartbeat, hasComment: true}
}

// writeEventStream 写出响应头并逐帧输出 frames，每帧写完立即 flush。
//
// 距离上一次写出超过 keepAlive 时插入一个心跳注释帧 ":\n\n"。
// frames 在单独的 goroutine 中迭代，以便上游阻塞时仍能发送心跳；
// ctx 结束或写失败时返回，frames 的迭代会随之停止。
func writeEventStream(ctx context.Context, w http.ResponseWriter, frames iter.Seq[Frame], keepAlive time.Duration) error {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	write := func(f Frame) error {
		if _, err := w.Write(f.Bytes()); err != nil {
			return err
		}
		observability.StreamFramesTotal.WithLabelValues(string(f.Kind())).Inc()
		// 不支持 flush 的 writer（例如部分测试替身）照常写出即可。
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	next := make(chan Frame)
	go func() {
		defer close(next)
		for f := range frames {
			select {
			case next <- f:
			case <-pumpCtx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case f, ok := <-next:
			if !ok {
				return nil
			}
			if err := write(f); err != nil {
				return err
			}
			ticker.Reset(keepAlive)
		case <-ticker.C:
			if err := write(heartbeatFrame()); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

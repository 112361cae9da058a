package dify

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// maxEventLineSize 限制单行 SSE 的长度，超过时读取以 bufio.ErrTooLong 失败。
const maxEventLineSize = 1 << 20

// readEventStream 按 SSE 规则读取 body，每个完整事件调用一次 emit。
// emit 返回 false 表示消费方已经不再需要后续事件。
// 只有 event: 行而没有 data: 的事件（例如 `event: ping`）会被当作 UnknownEvent 交给 emit。
func readEventStream(ctx context.Context, body io.Reader, emit func(StreamEvent) bool) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventLineSize)
	var dataLines []string
	eventName := ""

	dispatch := func() bool {
		defer func() {
			dataLines = dataLines[:0]
			eventName = ""
		}()
		if len(dataLines) > 0 {
			return emit(DecodeEvent([]byte(strings.Join(dataLines, "\n"))))
		}
		if eventName != "" {
			return emit(&UnknownEvent{Name: eventName})
		}
		return true
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "":
			if !dispatch() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
			// 注释行，Dify 不会发送，忽略。
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if strings.TrimSpace(data) != "" {
				dataLines = append(dataLines, data)
			}
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	dispatch()
	return nil
}

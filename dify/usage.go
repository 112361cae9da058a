package dify

import (
	"encoding/json"
	"math"

	"github.com/tidwall/gjson"
)

// Usage 是 metadata.usage 中的 token 统计。
type Usage struct {
	PromptTokens     uint64
	CompletionTokens uint64
	TotalTokens      uint64
}

// ParseUsage 从 metadata 中读取 usage，是一个全函数：
// metadata 缺失、不是对象、字段缺失或字段不是非负整数时，对应计数为 0。
func ParseUsage(metadata json.RawMessage) Usage {
	if len(metadata) == 0 {
		return Usage{}
	}
	usage := gjson.GetBytes(metadata, "usage")
	if !usage.IsObject() {
		return Usage{}
	}
	return Usage{
		PromptTokens:     tokenCount(usage.Get("prompt_tokens")),
		CompletionTokens: tokenCount(usage.Get("completion_tokens")),
		TotalTokens:      tokenCount(usage.Get("total_tokens")),
	}
}

func tokenCount(v gjson.Result) uint64 {
	if v.Type != gjson.Number {
		return 0
	}
	if v.Num < 0 || v.Num != math.Trunc(v.Num) || v.Num > math.MaxUint64 {
		return 0
	}
	return v.Uint()
}

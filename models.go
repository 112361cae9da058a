package dify2o

import (
	"strings"
	"time"
)

const (
	// DefaultDifyBaseURL 是 Dify 云服务 API 的默认地址，自部署时通过配置覆盖。
	DefaultDifyBaseURL = "https://api.dify.ai/v1"
	// DefaultSystemFingerprint 会出现在每个响应与 chunk 的 system_fingerprint 字段。
	DefaultSystemFingerprint = "fp_44709d6fcb"
	// DefaultUser 是请求未携带 user 字段时转发给 Dify 的用户标识。
	DefaultUser = "unknown_user"
	// DefaultKeepAlive 是 SSE 空闲时发送心跳注释的间隔，同时作为 retry 提示。
	DefaultKeepAlive = 30 * time.Second
	// DefaultModelID 是 /v1/models 在未配置任何模型时返回的名字。
	DefaultModelID = "dify"
)

// Model 是 /v1/models 中的一项。
type Model struct {
	ID      string
	OwnedBy string
}

// Models 返回对外暴露的模型列表（用于 /v1/models 输出）。
// Dify 应用本身不区分模型，请求中的 model 字段只会被原样回显，所以这里只做去重与清洗。
func Models(ids []string) []Model {
	out := make([]Model, 0, len(ids)+1)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, Model{ID: trimmed, OwnedBy: "dify"})
	}
	if len(out) == 0 {
		out = append(out, Model{ID: DefaultModelID, OwnedBy: "dify"})
	}
	return out
}

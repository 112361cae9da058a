// Package openaiapi 提供 OpenAI v1 兼容接口的通用数据结构与辅助函数。
//
// 该包只关注协议层：请求/响应 JSON 结构、SSE chunk 结构、错误结构以及少量构建函数。
// 与 Dify 的适配在 openaihttp 包中实现。
//
// 示例：创建一个 SSE chunk 并序列化输出
//
//	content := "hello"
//	chunk := openaiapi.ToChatChunk("msg-xxx", "dify", 1700000000, openaiapi.OpenAIDelta{Role: "assistant", Content: &content}, nil, nil, "fp_example")
//	_ = json.NewEncoder(w).Encode(chunk)
package openaiapi

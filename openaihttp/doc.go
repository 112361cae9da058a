// Package openaihttp 提供基于 Dify /chat-messages 的 OpenAI v1 兼容 HTTP 处理器。
//
// 该包对外只暴露：
// - net/http 形式的 handlers（models/chat.completions）
// - Gin 路由注册方法
//
// 请求携带 Authorization: Bearer <key> 时，该 key 只用于本次 Dify 调用；
// 否则使用 Config.APIKeyProvider 提供的默认 key。
//
// 使用示例：
//
//	// net/http
//	modelsH, chatH, _ := openaihttp.Handlers(openaihttp.Config{
//		DifyBaseURL:    "https://api.dify.ai/v1",
//		APIKeyProvider: provider,
//	})
//	mux.HandleFunc("/v1/models", modelsH)
//	mux.HandleFunc("/v1/chat/completions", chatH)
//
//	// gin
//	_ = openaihttp.RegisterGinRoutes(r, openaihttp.Config{
//		BasePath:       "/v1",
//		DifyBaseURL:    "https://api.dify.ai/v1",
//		APIKeyProvider: provider,
//	})
package openaihttp

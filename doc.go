// Package dify2o 提供将 Dify 对话应用（/chat-messages 接口，blocking 与 SSE streaming 两种模式）
// 转换为 OpenAI 兼容 /v1/chat/completions API 的能力，方便第三方程序直接使用 OpenAI SDK 调用 Dify。
//
// 该仓库主要包含三类能力：
//  1. HTTP 兼容层：openaihttp 包导出 /v1/models、/v1/chat/completions handlers
//  2. Dify 客户端：dify 包提供 blocking/streaming 调用，以及可供 Eino 使用的 BaseChatModel 实现
//  3. 服务组装：config/logging/observability/server 包与 cmd/dify2o 命令行
package dify2o

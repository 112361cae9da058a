// Package dify 是 Dify 对话应用 /chat-messages 接口的最小客户端。
//
// 支持两种调用方式：
//   - SendMessage：response_mode=blocking，一次性返回完整答案
//   - StreamMessage：response_mode=streaming，以 eino StreamReader 逐个返回 StreamEvent
//
// StreamEvent 是封闭的事件联合类型，未知事件统一解码为 *UnknownEvent，由调用方决定如何处理。
// ChatModel 在 Client 之上实现了 Eino 的 BaseChatModel，便于在 Eino/ADK 中直接使用。
package dify

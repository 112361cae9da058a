package openaihttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/LubyRuffy/dify2o"
	"github.com/LubyRuffy/dify2o/auth"
	"github.com/LubyRuffy/dify2o/dify"
	"github.com/LubyRuffy/dify2o/logging"
	"github.com/LubyRuffy/dify2o/observability"
	"github.com/LubyRuffy/dify2o/openaiapi"
)

type compatConfig struct {
	Now               func() time.Time
	NewChatCompletion func() string
	WriteJSON         func(w http.ResponseWriter, data interface{})
	WriteError        func(w http.ResponseWriter, statusCode int, message string)
	Backend           Backend
	APIKeyProvider    auth.Provider
	SystemFingerprint string
	DefaultUser       string
	KeepAlive         time.Duration
	Models            []string
}

type compatHandler struct {
	now               func() time.Time
	newChatCompletion func() string
	writeJSON         func(w http.ResponseWriter, data interface{})
	writeError        func(w http.ResponseWriter, statusCode int, message string)
	backend           Backend
	apiKeyProvider    auth.Provider
	systemFingerprint string
	defaultUser       string
	keepAlive         time.Duration
	models            []string
}

func newCompatHandler(cfg compatConfig) (*compatHandler, error) {
	if cfg.WriteJSON == nil {
		return nil, fmt.Errorf("WriteJSON is required")
	}
	if cfg.WriteError == nil {
		return nil, fmt.Errorf("WriteError is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("Backend is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewChatCompletion == nil {
		cfg.NewChatCompletion = openaiapi.NewChatCompletionID
	}
	if strings.TrimSpace(cfg.SystemFingerprint) == "" {
		cfg.SystemFingerprint = dify2o.DefaultSystemFingerprint
	}
	if strings.TrimSpace(cfg.DefaultUser) == "" {
		cfg.DefaultUser = dify2o.DefaultUser
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = dify2o.DefaultKeepAlive
	}
	return &compatHandler{
		now:               cfg.Now,
		newChatCompletion: cfg.NewChatCompletion,
		writeJSON:         cfg.WriteJSON,
		writeError:        cfg.WriteError,
		backend:           cfg.Backend,
		apiKeyProvider:    cfg.APIKeyProvider,
		systemFingerprint: cfg.SystemFingerprint,
		defaultUser:       cfg.DefaultUser,
		keepAlive:         cfg.KeepAlive,
		models:            cfg.Models,
	}, nil
}

func (h *compatHandler) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	models := dify2o.Models(h.models)
	modelsList := make([]openaiapi.OpenAIModel, 0, len(models))
	now := h.now().Unix()
	for _, m := range models {
		modelsList = append(modelsList, openaiapi.OpenAIModel{
			ID:      m.ID,
			Object:  "model",
			Created: now,
			OwnedBy: m.OwnedBy,
		})
	}

	h.writeJSON(w, openaiapi.OpenAIModelList{
		Object: "list",
		Data:   modelsList,
	})
}

func (h *compatHandler) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		h.fail(w, r, &httpError{Status: http.StatusMethodNotAllowed, Message: "method not allowed"})
		return
	}
	logger := logging.FromContext(r.Context())

	var req openaiapi.OpenAIChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, &ValidationError{Message: "invalid request body", Err: err})
		return
	}
	if ignored := req.IgnoredFields(); len(ignored) > 0 {
		logger.Debug("ignoring unsupported chat completion fields", slog.Any("fields", ignored))
	}

	query, err := BuildChatMessagesRequest(&req, h.defaultUser)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opts, err := h.callOptions(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if req.Stream {
		h.handleStreamResponse(w, r, query, req.Model, opts)
		return
	}

	completion, err := h.blockingCompletion(r.Context(), query, req.Model, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, completion)
}

// handleStreamResponse 在 Dify 返回响应头之前的失败仍按非流式错误返回 500；
// 一旦开始输出 SSE，之后的错误只能以错误帧的形式出现在流里。
func (h *compatHandler) handleStreamResponse(w http.ResponseWriter, r *http.Request, query dify.ChatMessagesRequest, model string, opts []dify.CallOption) {
	logger := logging.FromContext(r.Context())

	start := time.Now()
	events, err := h.backend.StreamMessage(r.Context(), query, opts...)
	err = classifyBackendError(err)
	observability.ObserveUpstream(modeStreaming, upstreamOutcome(err), time.Since(start).Seconds())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	mapper := &streamMapper{
		model:             model,
		systemFingerprint: h.systemFingerprint,
		retry:             h.keepAlive,
		fallbackID:        h.newChatCompletion(),
	}
	err = writeEventStream(r.Context(), w, mapper.frames(events), h.keepAlive)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Debug("client disconnected during stream")
	default:
		logger.Warn("stream aborted", slog.Any("error", err))
	}
}

// callOptions 优先使用请求自带的 bearer token；没有时使用配置的默认 key。
func (h *compatHandler) callOptions(r *http.Request) ([]dify.CallOption, error) {
	token, err := auth.BearerTokenFromRequest(r)
	if err == nil {
		return []dify.CallOption{dify.WithBearerToken(token)}, nil
	}
	logging.FromContext(r.Context()).Debug("no bearer token on request, using configured dify api key", slog.Any("reason", err))

	if h.apiKeyProvider == nil {
		return nil, nil
	}
	key, err := h.apiKeyProvider.APIKey(r.Context())
	if err != nil {
		return nil, &httpError{
			Status:  http.StatusInternalServerError,
			Message: "dify api key not available",
			Err:     err,
		}
	}
	return []dify.CallOption{dify.WithBearerToken(key)}, nil
}

func (h *compatHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromError(err)
	logger := logging.FromContext(r.Context())
	level := slog.LevelWarn
	var upstream *UpstreamError
	var validation *ValidationError
	if status >= http.StatusInternalServerError && !errors.As(err, &upstream) && !errors.As(err, &validation) {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "chat completion failed", slog.Int("status", status), slog.Any("error", err))
	h.writeError(w, status, httpMessageFromError(err))
}

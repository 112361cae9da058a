package openaihttp

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/LubyRuffy/dify2o/openaiapi"
)

// writeJSON 先完整序列化再写出，序列化失败时返回 500，不会写出半截 JSON。
func writeJSON(w http.ResponseWriter, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, (&SerializationError{Err: err}).Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(body, '\n'))
}

// writeError 输出 {"error": "<message>"}。
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(openaiapi.ErrorResponse{Error: message})
}

func normalizeBasePath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimRight(basePath, "/")
	if basePath == "" {
		return "/"
	}
	return basePath
}

func joinPath(basePath, suffix string) string {
	basePath = normalizeBasePath(basePath)
	if suffix == "" {
		return basePath
	}
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	// path.Join 会清理重复的 /，并保证结果以 / 开头
	return path.Join(basePath, suffix)
}

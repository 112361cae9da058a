package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type apiKeyFile struct {
	APIKey     string `json:"api_key"`
	DifyAPIKey string `json:"DIFY_API_KEY"`
}

// ReadAPIKeyFromPath 读取 key 文件。文件可以是纯文本（整个内容即 key，适配 k8s secret 挂载），
// 也可以是 JSON：{"api_key": "..."} 或 {"DIFY_API_KEY": "..."}。
func ReadAPIKeyFromPath(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read api key file: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "{") {
		if content == "" {
			return "", fmt.Errorf("api key file %s is empty: %w", path, ErrNoAPIKey)
		}
		return content, nil
	}

	var f apiKeyFile
	if err := json.Unmarshal([]byte(content), &f); err != nil {
		return "", fmt.Errorf("failed to parse api key file: %w", err)
	}
	key := strings.TrimSpace(f.APIKey)
	if key == "" {
		key = strings.TrimSpace(f.DifyAPIKey)
	}
	if key == "" {
		return "", fmt.Errorf("api key file missing api_key: %w", ErrNoAPIKey)
	}
	return key, nil
}

type fileProvider struct {
	path string
}

func (p *fileProvider) APIKey(ctx context.Context) (string, error) {
	if strings.TrimSpace(p.path) == "" {
		return "", fmt.Errorf("api key file is not configured: %w", ErrNoAPIKey)
	}
	return ReadAPIKeyFromPath(p.path)
}

package auth

import (
	"errors"
	"net/http"
	"strings"
)

// 以下错误表示请求没有携带可透传的 bearer token。调用方应当忽略它们并使用默认凭证。
var (
	ErrNoAuthorization = errors.New("authorization header is missing")
	ErrNotBearer       = errors.New("authorization header is not a bearer credential")
	ErrEmptyToken      = errors.New("bearer token is empty")
)

// BearerToken 从 Authorization 头中取出 token（形如 `Bearer <token>`，scheme 不区分大小写）。
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrNoAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok {
		if strings.EqualFold(scheme, "bearer") {
			return "", ErrEmptyToken
		}
		return "", ErrNotBearer
	}
	if !strings.EqualFold(scheme, "bearer") {
		return "", ErrNotBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// BearerTokenFromRequest 是 BearerToken 的 http.Request 版本。
func BearerTokenFromRequest(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrNoAuthorization
	}
	return BearerToken(r.Header.Get("Authorization"))
}

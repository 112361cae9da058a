package openaihttp

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterGinRoutes 注册 GET {base}/models、POST/OPTIONS {base}/chat/completions。
func RegisterGinRoutes(r gin.IRouter, cfg Config) error {
	if r == nil {
		return fmt.Errorf("router is nil")
	}
	modelsHandler, chatHandler, err := Handlers(cfg)
	if err != nil {
		return err
	}

	basePath := normalizeBasePath(cfg.BasePath)
	r.GET(joinPath(basePath, "/models"), gin.WrapF(modelsHandler))
	r.POST(joinPath(basePath, "/chat/completions"), gin.WrapF(chatHandler))
	// 预检请求直接返回 204，不进入转换逻辑。
	r.OPTIONS(joinPath(basePath, "/chat/completions"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return nil
}

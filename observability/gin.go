package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware 记录 dify2o_requests_total 与 dify2o_request_duration_seconds。
// route 使用 gin 的路由模板，未匹配的请求记为 "unmatched"，避免标签基数失控。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

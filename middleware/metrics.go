package middleware

import (
	"strconv"
	"time"

	"scamazon_go/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 记录请求数与耗时，按路由模板聚合
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		metrics.Requests.WithLabelValues(handler, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	}
}

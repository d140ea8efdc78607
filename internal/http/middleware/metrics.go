package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yungbote/courseflow-backend/internal/observability"
)

// Metrics records request counts and latency per route template. Event streams
// are counted as in flight but their duration is not observed.
func Metrics(m *observability.Metrics, streamRoutes ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	streams := make(map[string]struct{}, len(streamRoutes))
	for _, r := range streamRoutes {
		streams[r] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if _, ok := streams[route]; ok {
			return
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		m.ObserveAPI(method, route, status, time.Since(start))
	}
}

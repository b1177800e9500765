package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"ashare/internal/config"
	"ashare/internal/monitoring"
)

// rateLimitMiddleware applies a process-wide token bucket to all API
// traffic. The toolkit serves a single research team, so one shared bucket
// is enough; per-client fairness is not a concern here.
func rateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 600
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = rpm / 10
	}
	if burst < 1 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
				Success: false,
				Error:   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// metricsMiddleware counts requests per route and status code.
func metricsMiddleware(m *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if m == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.IncAPIRequest(path, strconv.Itoa(c.Writer.Status()))
	}
}

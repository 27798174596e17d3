package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/01moynul/bazaar-golang/internal/metrics"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request and feeds the latency histogram.
func RequestLogger(log *slog.Logger, m *metrics.ShopMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m != nil {
			m.RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", elapsed,
		}
		if id := IdentityFrom(c); id.UserID != 0 {
			attrs = append(attrs, "user_id", id.UserID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.ErrorContext(c.Request.Context(), "request", attrs...)
		case status >= 400:
			log.WarnContext(c.Request.Context(), "request", attrs...)
		default:
			log.InfoContext(c.Request.Context(), "request", attrs...)
		}
	}
}

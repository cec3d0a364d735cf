package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes one structured line per request.
func Logger(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path

	c.Next()

	status := c.Writer.Status()
	var event *zerolog.Event
	switch {
	case status >= 500:
		event = log.Error()
	case status >= 400:
		event = log.Warn()
	default:
		event = log.Info()
	}
	if len(c.Errors) > 0 {
		event = event.Str("errors", c.Errors.String())
	}
	event.
		Str("request_id", c.GetString(RequestIDKey)).
		Str("method", c.Request.Method).
		Str("path", path).
		Int("status", status).
		Int("size", c.Writer.Size()).
		Dur("latency", time.Since(start)).
		Str("client_ip", c.ClientIP()).
		Msg("request")
}

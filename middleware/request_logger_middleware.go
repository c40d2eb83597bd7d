package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"time"
)

func RequestLoggerMiddleware(logger outbound.LoggerPort) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": RequestID(c),
			"client_ip":  c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			logger.ErrorWithFields(c.Errors.Last(), "Request failed", fields)
			return
		}
		if c.Writer.Status() >= 500 {
			logger.WarnWithFields("Request completed with server error", fields)
			return
		}
		logger.InfoWithFields("Request completed", fields)
	}
}

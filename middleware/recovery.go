package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 carrying the trace ID, so a
// player report can be matched to the logged stack.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		traceID := GetTraceID(c)
		fields := []zap.Field{
			zap.Any("panic", recovered),
			zap.String("trace_id", traceID),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Stack("stack"),
		}
		if id := GetSessionID(c); id != "" {
			fields = append(fields, zap.String("session_id", id))
		}
		log.Error("handler panic", fields...)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":    "internal server error",
			"trace_id": traceID,
		})
	})
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appLogger "github.com/pvolkov/accounts-service/internal/infra/logger"
)

// Logger emits one access-log line per request, tagged with the correlation
// identifiers from EnrichContext. Client IPs are masked before logging.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		rc := GetRequestContext(c)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("trace_id", rc.TraceID),
			zap.String("request_id", rc.RequestID),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", appLogger.MaskIP(rc.IP)),
		}
		if rc.UserAgent != "" {
			fields = append(fields, zap.String("user_agent", rc.UserAgent))
		}

		switch {
		case len(c.Errors) > 0:
			log.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
		case status >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

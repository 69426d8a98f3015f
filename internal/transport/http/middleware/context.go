package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pvolkov/accounts-service/internal/infra/logger"
)

const (
	// TraceIDHeader carries the caller-supplied trace identifier.
	TraceIDHeader = "X-Trace-ID"
	// RequestIDHeader carries the per-request correlation identifier.
	RequestIDHeader = "X-Request-ID"
	// TraceIDKey is the gin context key the trace identifier is stored under.
	TraceIDKey = "trace_id"
	// AccountIDKey is the gin context key for the authenticated account ID.
	AccountIDKey = "account_id"

	requestContextKey = "request_context"
)

// RequestContext carries the correlation identifiers and caller metadata a
// single request accumulates as it moves through the middleware chain.
type RequestContext struct {
	TraceID   string
	RequestID string
	AccountID string
	IP        string
	UserAgent string
}

// EnrichContext assigns trace and request identifiers, mirrors them onto the
// response headers, and threads the request ID through the standard context
// so lower layers can tag their own log lines with it.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := &RequestContext{
			TraceID:   headerOrNew(c, TraceIDHeader),
			RequestID: headerOrNew(c, RequestIDHeader),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}

		c.Set(TraceIDKey, rc.TraceID)
		c.Set(requestContextKey, rc)
		c.Header(TraceIDHeader, rc.TraceID)
		c.Header(RequestIDHeader, rc.RequestID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, rc.RequestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func headerOrNew(c *gin.Context, header string) string {
	if v := c.GetHeader(header); v != "" {
		return v
	}
	return uuid.NewString()
}

// GetTraceID returns the trace identifier assigned to the request, or "".
func GetTraceID(c *gin.Context) string {
	id, _ := c.Value(TraceIDKey).(string)
	return id
}

// GetRequestContext returns the request's correlation data. It never returns
// nil so callers can read fields without guarding.
func GetRequestContext(c *gin.Context) *RequestContext {
	if rc, ok := c.Value(requestContextKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{}
}

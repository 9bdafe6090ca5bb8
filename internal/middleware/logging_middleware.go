package middleware

import (
	"time"

	"github.com/annel0/voxelcore/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader - заголовок ответа с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// RequestLogger снабжает каждый HTTP-запрос идентификатором и пишет краткие логи.
// Идентификатор берётся из активного OpenTelemetry-спана, иначе генерируется uuid.
type RequestLogger struct {
	log *logging.Logger
}

// NewRequestLogger создаёт middleware; nil-логгер означает глобальный logging пакет
func NewRequestLogger(l *logging.Logger) *RequestLogger {
	return &RequestLogger{log: l}
}

func (rl *RequestLogger) infof(format string, args ...interface{}) {
	if rl.log != nil {
		rl.log.Info(format, args...)
		return
	}
	logging.Info(format, args...)
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var requestID string
		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().IsValid() {
			requestID = span.SpanContext().TraceID().String()
		} else {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		rl.infof("[HTTP] %s %s %d %s ip=%s id=%s",
			c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP(), requestID)
	}
}

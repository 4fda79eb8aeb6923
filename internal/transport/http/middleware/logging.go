package middleware

import (
	"net/http"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LoggingMiddleware assigns the correlation id before the handler runs, so
// the access log line and the response always carry the same one.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		cid := httputils.CorrelationID(w, r)
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("correlation_id", cid),
			zap.String("method", r.Method),
			zap.String("route", routeLabel(r)),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", clientIP(r)),
		}
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}

		switch {
		case rec.statusCode >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case rec.statusCode == http.StatusTooManyRequests:
			logger.Warn("request rate limited", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	})
}

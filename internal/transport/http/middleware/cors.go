package middleware

import (
	"net/http"
	"slices"

	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"github.com/rs/cors"
)

var (
	corsMethods = []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
	}
	// W3C trace context is allowed in so browser spans join server traces.
	corsRequestHeaders = []string{
		"Accept",
		"Authorization",
		"Content-Type",
		APIKeyHeader,
		httputils.CorrelationIDHeader,
		"traceparent",
		"tracestate",
		"baggage",
	}
	corsResponseHeaders = []string{
		httputils.CorrelationIDHeader,
		"Retry-After",
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
	}
)

// CORSMiddleware allows the dashboard origins to call the API. An empty list
// or a "*" entry allows any origin, without credentials; bearer tokens travel
// in the Authorization header and do not need them.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: corsMethods,
		AllowedHeaders: corsRequestHeaders,
		ExposedHeaders: corsResponseHeaders,
		MaxAge:         600,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = allowedOrigins
		opts.AllowCredentials = true
	}
	return cors.New(opts).Handler
}

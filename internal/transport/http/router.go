package http

import (
	"net/http"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/config"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/auth"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/telemetry"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gate"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gateway"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/links"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/settings"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/users"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":                        "health",
	"GET /ready":                         "ready",
	"GET /metrics":                       "metrics",
	"GET /api":                           "gateway.create",
	"POST /api/auth/register":            "auth.register",
	"POST /api/auth/login":               "auth.login",
	"GET /api/me":                        "account.me",
	"POST /api/me/upgrade":               "account.upgrade",
	"POST /api/me/withdraw":              "account.withdraw",
	"POST /api/links":                    "links.create",
	"GET /api/links":                     "links.list",
	"DELETE /api/links/{id}":             "links.delete",
	"GET /api/links/{code}/stats":        "links.stats",
	"GET /api/links/{code}/qr":           "links.qr",
	"GET /api/traversals/{id}":           "gate.get",
	"POST /api/traversals/{id}/verify":   "gate.verify",
	"POST /api/traversals/{id}/continue": "gate.continue",
	"GET /api/admin/settings":            "admin.settings.get",
	"PUT /api/admin/settings":            "admin.settings.save",
	"GET /api/admin/users":               "admin.users.list",
	"POST /api/admin/users/{id}/plan":    "admin.users.plan",
	"POST /api/admin/users/{id}/suspend": "admin.users.suspend",
	"GET /api/admin/links":               "admin.links.list",
	"DELETE /api/admin/links/{id}":       "admin.links.delete",
	"GET /{code}":                        "gate.start",
}

// Services are the processing components the router exposes.
type Services struct {
	Links    *links.Service
	Gate     *gate.Engine
	Gateway  *gateway.Service
	Users    *users.Service
	Settings *settings.Service
	Tokens   *auth.Tokens

	// CreateLimiter throttles link creation on both channels.
	CreateLimiter middleware.RateLimiter

	// Readiness is keyed by dependency name and served on GET /ready.
	Readiness map[string]Check
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewRouter(cfg *config.Config, svc Services) http.Handler {
	return NewRouterWithOptions(cfg, svc, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, svc Services, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler(cfg.Storage.Backend, svc.Readiness)
	linksHandler := NewLinksHandler(svc.Links)
	gateHandler := NewGateHandler(svc.Gate)
	gatewayHandler := NewGatewayHandler(svc.Gateway)
	authHandler := NewAuthHandler(svc.Users, svc.Tokens)
	accountHandler := NewAccountHandler(svc.Users)
	adminHandler := NewAdminHandler(svc.Users, svc.Settings)

	authenticated := func(h http.HandlerFunc, extra ...func(http.Handler) http.Handler) http.Handler {
		mws := append([]func(http.Handler) http.Handler{
			middleware.Authenticate(svc.Users, svc.Tokens),
		}, extra...)
		return middleware.Chain(h, mws...)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authenticated(h, middleware.RequireAdmin)
	}

	var createLimit, gatewayLimit []func(http.Handler) http.Handler
	if svc.CreateLimiter != nil {
		createLimit = append(createLimit, middleware.RateLimitMiddleware(svc.CreateLimiter, "create", nil))
		gatewayLimit = append(gatewayLimit, middleware.RateLimitMiddleware(svc.CreateLimiter, "gateway", WriteGatewayLimited))
	}

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	// Token gateway
	mux.Handle("GET /api", middleware.Chain(http.HandlerFunc(gatewayHandler.Create), gatewayLimit...))

	// Auth
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Owner dashboard
	mux.Handle("GET /api/me", authenticated(accountHandler.Me))
	mux.Handle("POST /api/me/upgrade", authenticated(accountHandler.Upgrade))
	mux.Handle("POST /api/me/withdraw", authenticated(accountHandler.Withdraw))
	mux.Handle("POST /api/links", authenticated(linksHandler.Create, createLimit...))
	mux.Handle("GET /api/links", authenticated(linksHandler.List))
	mux.Handle("DELETE /api/links/{id}", authenticated(linksHandler.Delete))
	mux.Handle("GET /api/links/{code}/stats", authenticated(linksHandler.Stats))
	mux.Handle("GET /api/links/{code}/qr", authenticated(linksHandler.QR))

	// Redirect gate
	mux.HandleFunc("GET /api/traversals/{id}", gateHandler.Get)
	mux.HandleFunc("POST /api/traversals/{id}/verify", gateHandler.Verify)
	mux.HandleFunc("POST /api/traversals/{id}/continue", gateHandler.Continue)
	mux.HandleFunc("GET /{code}", gateHandler.Start)

	// Admin
	mux.Handle("GET /api/admin/settings", admin(adminHandler.GetSettings))
	mux.Handle("PUT /api/admin/settings", admin(adminHandler.SaveSettings))
	mux.Handle("GET /api/admin/users", admin(adminHandler.ListUsers))
	mux.Handle("POST /api/admin/users/{id}/plan", admin(adminHandler.ApplyPlan))
	mux.Handle("POST /api/admin/users/{id}/suspend", admin(adminHandler.Suspend))
	mux.Handle("GET /api/admin/links", admin(linksHandler.AdminList))
	mux.Handle("DELETE /api/admin/links/{id}", admin(linksHandler.AdminDelete))

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(cfg.Server.CORSOrigins)(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	// otelhttp names the span before the mux runs, so resolve the pattern here.
	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			_, pattern := mux.Handler(r)
			if name, ok := spanNames[pattern]; ok {
				return name
			}
			if pattern == "" {
				return "http.unmatched"
			}
			return pattern
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}

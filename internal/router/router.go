package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"petromanage/internal/config"
	"petromanage/internal/gateway"
	"petromanage/internal/handler"
	"petromanage/internal/middleware"
	"petromanage/pkg/identity"
)

type AuthHandlers struct {
	Auth   *handler.AuthHandler
	Health *handler.HealthHandler
	Docs   *handler.DocsHandler
	Audit  *handler.AuditHandler
}

// NewAuth routes the auth service. The role listings read the identity the
// gateway forwards and refuse requests that bypassed it.
func NewAuth(cfg *config.Config, h AuthHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)

	r.Get("/health", h.Health.Health)
	r.Get("/v3/api-docs", h.Docs.OpenAPI)
	r.Get("/swagger-ui", h.Docs.SwaggerUI)

	r.Route("/auth", func(auth chi.Router) {
		auth.Use(middleware.Timeout(cfg.RequestTimeout))

		auth.Post("/register", h.Auth.Register)
		auth.Post("/login", h.Auth.Login)
		auth.Post("/forgot-password", h.Auth.ForgotPassword)
		auth.Put("/reset-password", h.Auth.ResetPassword)

		auth.Group(func(protected chi.Router) {
			protected.Use(identity.Require)
			protected.Get("/details", h.Auth.Details)
			protected.Get("/getmanagerdetails", h.Auth.ManagerDetails)
			protected.Get("/getadmindetails", h.Auth.AdminDetails)
			if h.Audit != nil {
				protected.Get("/audit", h.Audit.List)
			}
		})
	})

	return r
}

// GatewayPipeline is the gateway's stage order. The auth filter is the first
// stage that can let a request through to an upstream. Rejected requests are
// charged to the rate limit like any other.
func GatewayPipeline(cfg *config.Config, filter *gateway.AuthFilter) *gateway.Pipeline {
	limiter := middleware.NewRateLimitMiddleware(middleware.RateLimitOptions{
		GeneralRPM:        cfg.RateLimitRPM,
		AuthRPM:           cfg.AuthRateLimitRPM,
		AuthPrefix:        "/auth",
		TrustForwardedFor: cfg.TrustForwardedFor,
	})

	return gateway.NewPipeline(
		gateway.Stage{Name: "recovery", Middleware: middleware.Recovery},
		gateway.Stage{Name: "request_logging", Middleware: middleware.Logging},
		gateway.Stage{Name: "cors", Middleware: middleware.CORS(cfg.CORSOrigins)},
		gateway.Stage{Name: "rate_limit", Middleware: limiter.Handler},
		gateway.Stage{Name: "auth_filter", Middleware: filter.Handler},
		gateway.Stage{Name: "security_headers", Middleware: middleware.SecurityHeaders},
	)
}

func NewGateway(cfg *config.Config, filter *gateway.AuthFilter, proxy *gateway.Proxy, health *handler.HealthHandler) http.Handler {
	terminal := chi.NewRouter()
	terminal.Get("/health", health.Health)
	terminal.With(middleware.UpstreamTimeout(cfg.RequestTimeout, cfg.UpstreamIdleTimeout)).Handle("/*", proxy)

	return GatewayPipeline(cfg, filter).Then(terminal)
}

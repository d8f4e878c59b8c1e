package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/middleware"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/views"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Guard          *middleware.RouteGuard
	Auth           *AuthHandler
	Impersonation  *ImpersonationHandler
	Portal         *PortalHandler
	Health         *HealthHandler
	AllowedOrigins []string
	SignInRequests int
	SignInWindow   time.Duration
}

// NewRouter builds the HTTP handler. The route guard runs on every request,
// public paths included, so its decision table stays the single source of
// access rules.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(cfg.Guard.Handler)

	r.Get("/health", cfg.Health.Health)
	r.Get("/health/ready", cfg.Health.Ready)
	r.Get("/health/live", cfg.Health.Live)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", views.Static())

	r.Route("/auth", func(r chi.Router) {
		r.Get("/signin", cfg.Auth.SignInPage)
		r.With(httprate.LimitByIP(cfg.SignInRequests, cfg.SignInWindow)).Post("/signin", cfg.Auth.SignIn)
		r.Post("/signout", cfg.Auth.SignOut)
	})

	r.Get("/", cfg.Portal.Dashboard)
	r.Get("/orders", cfg.Portal.Orders)
	r.Get("/orders/export.csv", cfg.Portal.ExportOrders)
	r.Get("/sites", cfg.Portal.Sites)
	r.Get("/order-kits", cfg.Portal.OrderKitsForm)
	r.Post("/order-kits", cfg.Portal.PlaceKitOrder)
	r.Get("/programs/{program}", cfg.Portal.Program)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, middleware.ChooseCustomerPath, http.StatusFound)
		})
		r.Get("/customers", cfg.Impersonation.Customers)
		r.Post("/impersonate", cfg.Impersonation.Start)
		r.Post("/impersonate/end", cfg.Impersonation.End)
	})

	return r
}

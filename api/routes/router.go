package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/payboard/payboard-backend/api/controllers"
	"github.com/payboard/payboard-backend/api/middleware"
	"github.com/payboard/payboard-backend/internal/analytics"
	"github.com/payboard/payboard-backend/internal/audit"
	"github.com/payboard/payboard-backend/internal/paymentinfo"
	"github.com/payboard/payboard-backend/internal/payments"
	"github.com/payboard/payboard-backend/internal/sellers"
	"github.com/payboard/payboard-backend/internal/users"
	"github.com/payboard/payboard-backend/pkg/config"
	"github.com/payboard/payboard-backend/pkg/discord"
	"github.com/payboard/payboard-backend/pkg/enums"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/metrics"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	// ReadyProbes is keyed by dependency name; each probe is called by the
	// readiness endpoint.
	ReadyProbes map[string]func(context.Context) error

	Registry *prometheus.Registry

	OAuth *discord.OAuthClient

	Payments    payments.Service
	Audit       audit.Service
	Users       users.Service
	Sellers     sellers.Service
	PaymentInfo paymentinfo.Service
	Analytics   analytics.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.ReadyProbes))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Get("/discord/url", controllers.AuthDiscordURL(deps.OAuth, logg))
		r.Post("/discord", controllers.AuthDiscord(deps.OAuth, deps.Users, cfg.JWT, logg))
		r.Post("/login", controllers.AuthLogin(deps.Users, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentsList(deps.Payments, logg))
			r.Post("/", controllers.PaymentsCreate(deps.Payments, logg))
			r.Get("/{id}", controllers.PaymentsGet(deps.Payments, logg))
			r.Patch("/{id}", controllers.PaymentsUpdate(deps.Payments, logg))
			r.Delete("/{id}", controllers.PaymentsDelete(deps.Payments, logg))
			r.Post("/{id}/paid", controllers.PaymentsSetPaid(deps.Payments, logg))

			r.With(middleware.RequireRole(string(enums.RoleAdmin), logg)).
				Get("/{id}/audit", controllers.PaymentAudit(deps.Audit, logg))
		})

		r.Route("/sellers", func(r chi.Router) {
			r.Get("/me", controllers.SellerGet(deps.Sellers, logg))
			r.Put("/me", controllers.SellerSave(deps.Sellers, logg))
		})

		r.Get("/payment-info", controllers.PaymentInfo(deps.PaymentInfo, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

			r.Get("/analytics/summary", controllers.AnalyticsSummary(deps.Analytics, logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.UsersList(deps.Users, logg))
				r.Patch("/{id}/role", controllers.UserSetRole(deps.Users, logg))
				r.Post("/{id}/credentials", controllers.UserIssueCredentials(deps.Users, logg))
			})
		})
	})

	return r
}

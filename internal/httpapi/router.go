package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"movebooking/internal/admin"
	"movebooking/internal/api"
	"movebooking/internal/booking"
	"movebooking/internal/catalog"
	"movebooking/internal/payment"
	"movebooking/internal/support"
	"movebooking/internal/team"
	"movebooking/internal/user"
	"movebooking/pkg/config"
)

type Dependencies struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Logger    *slog.Logger
	Verifier  api.TokenVerifier
	Identity  user.MetadataSyncer
	Publisher booking.EventPublisher
	Catalog   *catalog.Catalog
}

func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(api.RequestLogger(deps.Logger))
	r.Use(api.CORS(deps.Cfg.AllowedOrigins))
	r.Use(api.ErrorDetail(!deps.Cfg.IsProd()))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	cat := deps.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	usersRepo := user.NewRepository(deps.DB)
	teamsRepo := team.NewRepository(deps.DB)
	paymentsRepo := payment.NewRepository(deps.DB)

	catalogHandlers := catalog.Handlers{Catalog: cat}
	bookingHandlers := booking.Handlers{
		Bookings:  booking.NewRepository(deps.DB),
		Catalog:   cat,
		Teams:     teamsRepo,
		Publisher: deps.Publisher,
	}
	paymentHandlers := payment.Handlers{Payments: paymentsRepo, Currency: deps.Cfg.Payments.Currency}
	webhookHandler := payment.WebhookHandler{
		Secret:   deps.Cfg.Payments.WebhookSecret,
		Source:   "payments",
		Payments: paymentsRepo,
	}
	supportHandlers := support.Handlers{Tickets: support.NewRepository(deps.DB)}
	teamHandlers := team.Handlers{Teams: teamsRepo}
	userHandlers := user.Handlers{Users: usersRepo, Identity: deps.Identity}
	statsHandlers := admin.Handlers{Stats: admin.NewRepository(deps.DB)}

	r.Route("/v1", func(r chi.Router) {
		// Public: the catalog and estimates need no account.
		r.Get("/catalog/services", catalogHandlers.List)
		r.Get("/catalog/services/{id}", catalogHandlers.Get)
		r.Post("/estimates", catalogHandlers.Estimate)

		r.Post("/webhooks/payments", webhookHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(api.Authenticate(deps.Verifier))
			r.Use(user.Provision(usersRepo))

			r.Get("/me", userHandlers.Me)
			r.Patch("/me", userHandlers.UpdateMe)

			r.Post("/bookings", bookingHandlers.Create)
			r.Get("/bookings", bookingHandlers.List)
			r.Get("/bookings/{id}", bookingHandlers.Get)
			r.Patch("/bookings/{id}", bookingHandlers.Update)
			r.Put("/bookings/{id}/status", bookingHandlers.UpdateStatus)
			r.Delete("/bookings/{id}", bookingHandlers.Delete)
			r.Get("/bookings/{id}/events", bookingHandlers.Events)

			r.Post("/payments", paymentHandlers.Create)
			r.Get("/payments", paymentHandlers.List)
			r.Get("/payments/{id}", paymentHandlers.Get)

			r.Post("/support-tickets", supportHandlers.Create)
			r.Get("/support-tickets", supportHandlers.List)
			r.Get("/support-tickets/{id}", supportHandlers.Get)

			r.Route("/admin", func(r chi.Router) {
				r.Use(api.RequireAdmin(usersRepo))

				r.Get("/stats", statsHandlers.Get)

				r.Get("/bookings", bookingHandlers.AdminList)
				r.Get("/bookings/{id}", bookingHandlers.AdminGet)
				r.Put("/bookings/{id}/status", bookingHandlers.AdminUpdateStatus)
				r.Put("/bookings/{id}/assign-team", bookingHandlers.AssignTeam)

				r.Get("/payments", paymentHandlers.AdminList)
				r.Put("/payments/{id}/status", paymentHandlers.AdminUpdateStatus)

				r.Get("/support-tickets", supportHandlers.AdminList)
				r.Patch("/support-tickets/{id}", supportHandlers.AdminUpdate)

				r.Get("/teams", teamHandlers.List)
				r.Post("/teams", teamHandlers.Create)
				r.Get("/teams/{id}", teamHandlers.Get)
				r.Patch("/teams/{id}", teamHandlers.Update)
				r.Delete("/teams/{id}", teamHandlers.Delete)

				r.Get("/users", userHandlers.AdminList)
				r.Put("/users/{id}/role", userHandlers.AdminSetRole)
			})
		})
	})

	return r
}

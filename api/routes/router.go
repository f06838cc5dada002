package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/contactbook-backend/api/controllers"
	"github.com/angelmondragon/contactbook-backend/api/middleware"
	"github.com/angelmondragon/contactbook-backend/internal/address"
	"github.com/angelmondragon/contactbook-backend/internal/auth"
	"github.com/angelmondragon/contactbook-backend/internal/contacts"
	"github.com/angelmondragon/contactbook-backend/internal/users"
	"github.com/angelmondragon/contactbook-backend/pkg/auth/session"
	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
	"github.com/angelmondragon/contactbook-backend/pkg/redis"
)

// Params carries everything the HTTP surface depends on.
type Params struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger    db.Pinger
	RedisPinger redis.Pinger

	Sessions    session.AccessSessionChecker
	RateStore   middleware.RateLimitStore
	UserLimiter *middleware.UserLimiter

	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Auth     auth.Service
	Users    users.Service
	Contacts contacts.Service
	Address  address.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if p.HTTPMetrics != nil {
		r.Use(middleware.Metrics(p.HTTPMetrics))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DBPinger, p.RedisPinger, logg))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.RateStore, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.RateStore, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, p.Sessions, logg),
				middleware.RateLimit(p.UserLimiter, logg),
			)

			r.Post("/logout", controllers.AuthLogout(p.Auth, logg))

			r.Get("/me", controllers.MeShow(p.Users, logg))
			r.Put("/me", controllers.MeUpdate(p.Users, logg))
			r.Post("/me/password", controllers.MeChangePassword(p.Users, logg))
			r.Delete("/account", controllers.AccountDelete(p.Users, logg))

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", controllers.ContactsList(p.Contacts, logg))
				r.Post("/", controllers.ContactsCreate(p.Contacts, logg))
				r.Get("/{id}", controllers.ContactsShow(p.Contacts, logg))
				r.Put("/{id}", controllers.ContactsUpdate(p.Contacts, logg))
				r.Delete("/{id}", controllers.ContactsDelete(p.Contacts, logg))
			})

			r.Get("/address", controllers.AddressLookup(p.Address, logg))
			r.Get("/address/search", controllers.AddressSearch(p.Address, logg))
		})
	})

	return r
}

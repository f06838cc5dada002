package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/contactbook-backend/api/middleware"
	"github.com/angelmondragon/contactbook-backend/api/routes"
	"github.com/angelmondragon/contactbook-backend/internal/address"
	"github.com/angelmondragon/contactbook-backend/internal/auth"
	"github.com/angelmondragon/contactbook-backend/internal/contacts"
	"github.com/angelmondragon/contactbook-backend/internal/users"
	"github.com/angelmondragon/contactbook-backend/pkg/auth/session"
	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/maps"
	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
	"github.com/angelmondragon/contactbook-backend/pkg/migrate"
	"github.com/angelmondragon/contactbook-backend/pkg/redis"
	"github.com/angelmondragon/contactbook-backend/pkg/security"
	"github.com/angelmondragon/contactbook-backend/pkg/upstream"
	"github.com/angelmondragon/contactbook-backend/pkg/viacep"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.FromConfig("api", cfg.App)

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	upstreamMetrics := metrics.NewUpstreamMetrics(reg)
	policy := upstream.PolicyFromConfig(cfg.Upstream)

	geocoder, err := maps.NewClient(cfg.GoogleMaps.APIKey,
		maps.WithBaseURL(cfg.GoogleMaps.BaseURL),
		maps.WithPolicy(policy),
		maps.WithObserver(upstreamMetrics),
	)
	if err != nil {
		return err
	}
	postal := viacep.NewClient(
		viacep.WithBaseURL(cfg.ViaCEP.BaseURL),
		viacep.WithPolicy(policy),
		viacep.WithObserver(upstreamMetrics),
	)

	addressService, err := address.NewService(address.ServiceParams{Postal: postal, Geocoder: geocoder})
	if err != nil {
		return err
	}

	hasher := security.NewHasher(cfg.Password)
	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Hasher:         hasher,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return err
	}

	usersService, err := users.NewService(users.ServiceParams{
		DB:       dbClient,
		UserRepo: userRepo,
		Hasher:   hasher,
		Sessions: sessionManager,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	contactsService, err := contacts.NewService(contacts.ServiceParams{
		Repo:     contacts.NewRepository(dbClient.DB()),
		Geocoder: addressService,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	limiter := middleware.NewUserLimiter(cfg.APIRateLimit.RPS, cfg.APIRateLimit.Burst, cfg.APIRateLimit.IdleTTL)
	limiter.StartJanitor(ctx, time.Minute)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			DBPinger:    dbClient,
			RedisPinger: redisClient,
			Sessions:    sessionManager,
			RateStore:   redisClient,
			UserLimiter: limiter,
			HTTPMetrics: metrics.NewHTTPMetrics(reg),
			Gatherer:    reg,
			Auth:        authService,
			Users:       usersService,
			Contacts:    contactsService,
			Address:     addressService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return multierr.Append(server.Shutdown(shutdownCtx), <-serveErr)
}

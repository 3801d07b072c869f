package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dsanotes/internal/auth"
	"dsanotes/internal/config"
	transporthttp "dsanotes/internal/http"
	"dsanotes/internal/metrics"
	"dsanotes/internal/platform/database"
	"dsanotes/internal/platform/logging"
	"dsanotes/internal/platform/migrate"
	"dsanotes/internal/users"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	userRepo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	googleOpts := []auth.GoogleOption{auth.WithProviderMetrics(collector)}
	if cfg.Auth.VerifyIDToken {
		verifier, err := auth.NewGoogleIDTokenVerifier(ctx, cfg.Google.ClientID)
		if err != nil {
			logger.Error("failed to initialize id token verifier", "error", err)
			os.Exit(1)
		}
		googleOpts = append(googleOpts, auth.WithIDTokenVerifier(verifier))
	}
	google := auth.NewGoogleClient(auth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURI,
		Timeout:      cfg.Auth.ProviderTimeout,
	}, googleOpts...)
	if cfg.Google.ClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID is empty; Google login will fail until it is configured")
	}

	userService := users.NewService(userRepo, users.WithRefreshOnLogin(cfg.Auth.RefreshProfileOnLogin))
	flow := auth.NewLoginFlow(google, userService, auth.NewSessionIssuer(time.Now), collector, logger)

	var limiter *transporthttp.RateLimiter
	if cfg.Auth.RateLimitPerMinute > 0 {
		limiter = transporthttp.NewRateLimiter(cfg.Auth.RateLimitPerMinute, logger)
		defer limiter.Stop()
	}

	router := transporthttp.NewRouter(cfg, transporthttp.Dependencies{
		Google:         google,
		Login:          flow,
		Validator:      auth.NewSessionValidator(google),
		Users:          userService,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
		RateLimiter:    limiter,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Covers two sequential provider calls on the callback.
		WriteTimeout:   2*cfg.Auth.ProviderTimeout + 15*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("DSA notes API listening", "addr", srv.Addr, "store", cfg.DataStore, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (users.Repository, func(), error) {
	switch cfg.DataStore {
	case config.DataStorePostgres:
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			_ = db.Close()
		}
		if err := migrate.Apply(ctx, db, logger); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		return users.NewPostgresRepository(db), cleanup, nil

	case config.DataStoreMongo:
		db, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(disconnectCtx)
		}
		repo, err := users.NewMongoRepository(ctx, db)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("connected to mongo", "database", cfg.MongoDatabase)
		return repo, cleanup, nil

	default:
		logger.Info("using in-memory repository")
		return users.NewInMemoryRepository(), nil, nil
	}
}

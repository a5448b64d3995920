package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/blog-api/internal/api"
	"github.com/isdelr/blog-api/internal/auth"
	"github.com/isdelr/blog-api/internal/config"
	"github.com/isdelr/blog-api/internal/database"
	"github.com/isdelr/blog-api/internal/logger"
	"github.com/isdelr/blog-api/internal/metrics"
	"github.com/isdelr/blog-api/internal/monitoring"
	"github.com/isdelr/blog-api/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath(), cfg.DBMaxConnections)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}
	log.Info().Int("max_connections", cfg.DBMaxConnections).Msg("Database connection pool established")

	tokens, err := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.TokenLifetime())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token codec")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// Set up services
	userStore := services.NewSQLUserStore(db, cfg.DBAcquireTimeout)
	authService, err := services.NewAuthService(userStore, auth.NewBcryptHasher(auth.DefaultCost), tokens, collector)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}

	// Background jobs
	statUpdater := monitoring.NewStatUpdater(userStore, collector, cfg.DBAcquireTimeout)
	scheduler := monitoring.NewScheduler()
	if err := scheduler.Add("user-stats", cfg.StatsSchedule, statUpdater.Run); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule user stats")
	}
	statUpdater.Run()
	scheduler.Start()

	var limiter *api.RateLimiter
	if cfg.AuthRateLimitPerMinute > 0 {
		limiter = api.NewRateLimiter(cfg.AuthRateLimitPerMinute)
		defer limiter.Stop()
	}

	// Set up router
	router := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		Metrics:        collector,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	scheduler.Stop(ctx)

	log.Info().Msg("Server exiting")
}

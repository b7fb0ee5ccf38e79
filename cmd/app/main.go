package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maxmaster/portal-server-go/internal/features/company"
	"github.com/maxmaster/portal-server-go/internal/http/routes"
	"github.com/maxmaster/portal-server-go/pkg/cache"
	"github.com/maxmaster/portal-server-go/pkg/config"
	"github.com/maxmaster/portal-server-go/pkg/database"
	"github.com/maxmaster/portal-server-go/pkg/email"
	"github.com/maxmaster/portal-server-go/pkg/jobs"
	"github.com/maxmaster/portal-server-go/pkg/logger"
	"github.com/maxmaster/portal-server-go/pkg/registry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(db, appLogger); err != nil {
			appLogger.Error("database close failed", slog.String("error", err.Error()))
		}
	}()

	store, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Error("cache connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	providers := registry.ProvidersFromConfig(cfg.Registry)
	registryService := registry.NewService(providers, store, cfg.Registry.CacheTTL, appLogger).
		WithKnownChecker(company.KnownChecker(db))
	appLogger.Info("registry providers configured", slog.Any("providers", registryService.Providers()))

	emailClient := email.NewClient(
		cfg.Email.Host,
		cfg.Email.Port,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.From,
		cfg.Email.Secure,
		cfg.Email.FrontendURL,
	)

	scheduler := jobs.NewScheduler(appLogger)
	scheduler.AddJob(
		company.NewRegistrySyncJob(db, registryService, cfg.Registry.SyncMaxAge, appLogger),
		cfg.Registry.SyncInterval,
	)
	scheduler.Start()
	defer scheduler.Stop()

	router := routes.NewRouter(routes.Dependencies{
		Config:   cfg,
		DB:       db,
		Cache:    store,
		Logger:   appLogger,
		Registry: registryService,
		Mailer:   emailClient,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLogger.Info("server starting",
			slog.String("addr", cfg.ServerAddress()),
			slog.String("env", cfg.Env),
			slog.String("log_level", cfg.LogLevel),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server listen failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", slog.String("error", err.Error()))
	} else {
		appLogger.Info("server stopped gracefully")
	}
}

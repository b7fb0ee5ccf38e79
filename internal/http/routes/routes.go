package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/maxmaster/portal-server-go/internal/features/company"
	"github.com/maxmaster/portal-server-go/internal/features/taxid"
	"github.com/maxmaster/portal-server-go/internal/middleware"
	"github.com/maxmaster/portal-server-go/pkg/apperrors"
	"github.com/maxmaster/portal-server-go/pkg/cache"
	"github.com/maxmaster/portal-server-go/pkg/config"
	"github.com/maxmaster/portal-server-go/pkg/database"
	"github.com/maxmaster/portal-server-go/pkg/health"
	"github.com/maxmaster/portal-server-go/pkg/metrics"
	pkgmiddleware "github.com/maxmaster/portal-server-go/pkg/middleware"
	"github.com/maxmaster/portal-server-go/pkg/request"
	"github.com/maxmaster/portal-server-go/pkg/types"
)

// Dependencies are the shared services handed to feature routes.
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Cache    cache.Client
	Logger   *slog.Logger
	Registry company.RegistryLookup
	Mailer   company.WelcomeSender
}

// maxBodyBytes caps request bodies; every payload here is a small JSON document.
const maxBodyBytes = 1 << 20

// NewRouter builds the engine with the global middleware stack and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(pkgmiddleware.Recovery(deps.Logger))
	router.Use(pkgmiddleware.RequestID())
	router.Use(pkgmiddleware.CORS(deps.Config.AllowedOrigins))
	router.Use(pkgmiddleware.Compression("/metrics"))
	router.Use(pkgmiddleware.RequestLogger(deps.Logger))
	router.Use(pkgmiddleware.SecurityHeaders())
	router.Use(pkgmiddleware.NoStore("/api"))
	router.Use(pkgmiddleware.RequestSizeLimit(maxBodyBytes))
	router.Use(metrics.Middleware())
	router.Use(request.Handler(deps.Logger))

	limiter := pkgmiddleware.NewRateLimiter(deps.Cache, "global", deps.Config.RateLimit.PerMinute, time.Minute, deps.Logger)
	router.Use(limiter.Middleware())

	Register(router, deps)
	return router
}

// Register wires all feature routes onto the engine.
func Register(engine *gin.Engine, deps Dependencies) {
	cfg, logger := deps.Config, deps.Logger

	// Probes live outside /api for Kubernetes.
	healthHandler := health.NewHandler(logger,
		health.Check{Name: "database", Ping: func(ctx context.Context) error { return database.Ping(ctx, deps.DB) }},
		health.Check{Name: "cache", Ping: deps.Cache.Ping},
	)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/version", healthHandler.Version)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.New("Route not found", http.StatusNotFound, apperrors.ErrNotFound, nil))
	})

	api := engine.Group("/api")

	auth := middleware.NewAuthMiddleware(cfg.JWTSecret, logger)
	// SUPERADMIN passes every role check.
	adminOnly := auth.RequireRoles(types.UserTypeAdmin)
	superadminOnly := auth.RequireRoles(types.UserTypeSuperAdmin)

	lookupLimiter := pkgmiddleware.NewRateLimiter(deps.Cache, "lookup", cfg.RateLimit.LookupPerMinute, time.Minute, logger)
	public := []gin.HandlerFunc{lookupLimiter.Middleware()}

	taxid.RegisterRoutes(api, logger)
	company.RegisterRoutes(api, deps.DB, logger, deps.Registry, deps.Mailer, public, adminOnly, superadminOnly)
}

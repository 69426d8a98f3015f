package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/infra/config"
	"github.com/pvolkov/accounts-service/internal/transport/http/handlers"
	"github.com/pvolkov/accounts-service/internal/transport/http/middleware"
	"github.com/pvolkov/accounts-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth     *usecase.AuthService
	Accounts *usecase.AccountService
	Stats    *usecase.StatsService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker reports whether the relational store is reachable.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker reports whether the cache backend is reachable.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authRequired := middleware.RequireAuth(deps.Services.Auth)
	authOptional := middleware.OptionalAuth(deps.Services.Auth)
	adminRequired := middleware.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)

	healthHandler := handlers.NewHealthHandler(readinessChecks(deps)...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		authHandler.RegisterRoutes(authGroup, buildLoginMiddlewares(deps)...)

		accountsGroup := api.Group("/accounts")
		accountHandler := handlers.NewAccountHandler(deps.Services.Accounts)
		accountHandler.RegisterRoutes(accountsGroup, authOptional, authRequired, adminRequired)

		if deps.Services.Stats != nil {
			statsGroup := api.Group("/stats")
			statsGroup.Use(authRequired, adminRequired)
			statsHandler := handlers.NewStatsHandler(deps.Services.Stats)
			statsHandler.RegisterRoutes(statsGroup)
		}
	}

	return r
}

func readinessChecks(deps Dependencies) []handlers.HealthOption {
	var opts []handlers.HealthOption
	if deps.Database != nil {
		opts = append(opts, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		opts = append(opts, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	return opts
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}
	limits := deps.Config.RateLimit
	if limits.LoginMaxAttempts <= 0 {
		return nil
	}
	window := limits.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       "auth_login_ip",
		Limit:      limits.LoginMaxAttempts,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}

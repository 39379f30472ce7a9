// Package router assembles the gin engine from the application modules.
package router

import (
	"context"
	"net/http"
	"time"

	"production_backend/internal/access"
	apphttp "production_backend/internal/http"
	"production_backend/internal/http/middleware"
	"production_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	slowRequestThreshold = 2 * time.Second
	readinessTimeout     = 2 * time.Second
)

// New builds the engine: global middleware, health checks and the
// /api/v1 groups every module mounts onto.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID(app.Logger))
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(middleware.RequestTimer(app.Logger, slowRequestThreshold))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	if perSecond := app.Config.GetRateLimitPerSecond(); perSecond > 0 {
		limiter := httpkit.NewIPRateLimiter(rate.Limit(perSecond), app.Config.GetRateLimitBurst(), app.Logger)
		engine.Use(limiter.RateLimit())
	}

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		if app.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := app.Health.Ping(ctx); err != nil {
			app.Logger.Warn("readiness check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(httpkit.AuthRequired(app.Config))
	admin := protected.Group("/admin")
	admin.Use(httpkit.RequireRole(access.RoleAdmin))

	idempotent := app.Idempotent
	if idempotent == nil {
		idempotent = func(c *gin.Context) { c.Next() }
	}

	rctx := &apphttp.RouterContext{
		V1:         v1,
		Protected:  protected,
		Admin:      admin,
		Idempotent: idempotent,
	}
	for _, module := range app.Modules {
		module.RegisterRoutes(rctx)
		app.Logger.Debug("module routes registered", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() || len(cfg.GetCORSOrigins()) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
	}
	return c
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/locustsocial/feedsync/internal/config"
	"github.com/locustsocial/feedsync/internal/logger"
	"github.com/locustsocial/feedsync/internal/middleware"
)

const corsMaxAgeHours = 12

// Dependencies carries the handlers' collaborators into route setup.
type Dependencies struct {
	Content      ContentEvents
	Interactions InteractionEvents
	Feed         FeedPages
	RankProxy    RankPassthrough
	Readiness    []ReadinessCheck
	Metrics      http.Handler
}

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, cfg *config.Config, deps *Dependencies, log logger.Logger) {
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))

	health := NewHealthHandler(deps.Readiness)
	router.GET("/healthz", health.Live)
	router.GET("/readyz", health.Ready)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	// Rank passthrough keeps the legacy browser-facing route, so it gets
	// CORS while the rest of the API does not.
	proxy := router.Group("")
	proxy.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       corsMaxAgeHours * time.Hour,
	}))
	proxyHandler := NewProxyHandler(deps.RankProxy, log)
	proxy.GET("/rankProxy", proxyHandler.Rank)
	proxy.OPTIONS("/rankProxy", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	events := v1.Group("/events")
	eventHandler := NewEventHandler(deps.Content, deps.Interactions, log)
	events.POST("/posts", eventHandler.PostWrite)
	events.POST("/interactions", eventHandler.InteractionWrite)

	feedHandler := NewFeedHandler(deps.Feed, log)
	v1.GET("/feed", feedHandler.Ranked)
	v1.GET("/feed/recent", feedHandler.Recent)
}

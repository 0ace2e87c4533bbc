package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Placements *PlacementHandler
	Inbox      *InboxHandler
	Verifier   TokenVerifier

	// Limiter guards the AI endpoints; ExtractLimit requests per minute.
	Limiter      Limiter
	ExtractLimit int

	// Empty means any origin.
	CORSAllowedOrigins []string
	Log                *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := logging.OrNop(cfg.Log)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	r.Use(cors.New(corsConfig))

	api := r.Group("/api/v1")
	api.GET("/health", HealthCheck)

	authed := api.Group("")
	authed.Use(Authenticate(cfg.Verifier, log))
	ai := RateLimit(cfg.Limiter, "extract", cfg.ExtractLimit, time.Minute, log)

	p := cfg.Placements
	{
		authed.GET("/placements", p.List)
		authed.GET("/placements/board", p.Board)
		authed.GET("/placements/upcoming", p.Upcoming)
		authed.GET("/placements/stats", p.Stats)
		authed.GET("/placements/export", p.Export)
		authed.POST("/placements", p.Create)
		authed.POST("/placements/from-candidate", p.CreateFromCandidate)
		authed.POST("/placements/bulk/status", p.BulkStatus)
		authed.POST("/placements/bulk/delete", p.BulkDelete)
		authed.GET("/placements/:id", p.Get)
		authed.PUT("/placements/:id", p.Update)
		authed.DELETE("/placements/:id", p.Delete)
		authed.PATCH("/placements/:id/eligibility", p.SetEligibility)
		authed.PATCH("/placements/:id/status", p.SetStatus)
		authed.POST("/placements/:id/follow-up", p.ApplyFollowUp)

		authed.POST("/extract", ai, p.Extract)
		authed.POST("/placements/:id/extract", ai, p.ExtractFollowUp)
	}
	if cfg.Inbox != nil {
		authed.GET("/inbox/suggestions", ai, cfg.Inbox.Suggestions)
	}
	return r
}

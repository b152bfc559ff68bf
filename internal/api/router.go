package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/civichub/civichub/internal/auth"
	"github.com/civichub/civichub/internal/cache"
	"github.com/civichub/civichub/internal/db"
	"github.com/civichub/civichub/pkg/logging"
)

// Router sets up API routes
type Router struct {
	communities *CommunityHandler
	reports     *ReportHandler
	verifier    *auth.Verifier
	db          *db.DB
	cache       *cache.Cache
	logger      *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache, verifier *auth.Verifier) *Router {
	repo := db.NewRepository(database.DB)
	communities := db.NewCommunityRepository(repo)
	memberships := db.NewMembershipRepository(repo)
	reports := db.NewReportRepository(repo)

	return &Router{
		communities: NewCommunityHandler(communities, memberships, redisCache),
		reports:     NewReportHandler(reports, communities, memberships, redisCache),
		verifier:    verifier,
		db:          database,
		cache:       redisCache,
		logger:      logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(RequestID(), Trace())

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// Prometheus metrics
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	required := RequireSession(r.verifier)
	optional := OptionalSession(r.verifier)

	communities := engine.Group("/communities")
	{
		communities.GET("", r.communities.List)
		communities.POST("", required, r.communities.Create)
		communities.GET("/:slug", optional, r.communities.Get)
		communities.PATCH("/:slug", required, r.communities.Update)
		communities.POST("/:slug/join", required, r.communities.Join)
		communities.POST("/:slug/leave", required, r.communities.Leave)
		communities.GET("/:slug/members", r.communities.ListMembers)

		communities.GET("/:slug/reports", r.reports.ListByCommunity)
		communities.POST("/:slug/reports", required, r.reports.CreateInCommunity)
		communities.GET("/:slug/reports/:id", r.reports.GetInCommunity)
		communities.PATCH("/:slug/reports/:id", required, r.reports.UpdateInCommunity)
		communities.DELETE("/:slug/reports/:id", required, r.reports.DeleteInCommunity)
	}

	reports := engine.Group("/reports")
	{
		reports.GET("", r.reports.ListAll)
		reports.POST("", required, r.reports.Create)
		reports.GET("/:id", r.reports.Get)
		reports.PATCH("/:id", required, r.reports.Update)
		reports.DELETE("/:id", required, r.reports.Delete)
	}
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "civichub-api",
	})
}

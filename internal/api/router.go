package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/ipv4-deal-os/internal/api/handler"
	"github.com/timmy/ipv4-deal-os/internal/api/middleware"
	"github.com/timmy/ipv4-deal-os/internal/config"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

// Services bundles the services exposed over HTTP.
type Services struct {
	Health   *service.HealthService
	Analysis *service.AnalysisService
	Metrics  *service.MetricsService
	Leads    *service.LeadService
	Jobs     *service.JobService
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc *Services, cfg *config.ServerConfig) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler(svc.Health)
	analysisHandler := handler.NewAnalysisHandler(svc.Analysis)
	metricsHandler := handler.NewMetricsHandler(svc.Metrics)
	leadHandler := handler.NewLeadHandler(svc.Leads)
	jobHandler := handler.NewJobHandler(svc.Jobs)
	frontendHandler := handler.NewFrontendHandler(cfg.FrontendDir)

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.Health)

		api.POST("/ai/analyze", analysisHandler.Analyze)

		api.GET("/metrics", metricsHandler.Metrics)

		// Leads
		api.GET("/leads", leadHandler.ListLeads)
		api.GET("/leads/:id", leadHandler.GetLead)
		api.PATCH("/leads/:id", leadHandler.UpdateLead)

		// Jobs
		api.POST("/jobs/run", jobHandler.RunJob)
		api.GET("/jobs/status", jobHandler.ListJobs)
		api.GET("/jobs/:id/logs", jobHandler.JobLogs)
	}

	// Everything else is the frontend
	r.NoRoute(frontendHandler.NoRoute)

	return r
}

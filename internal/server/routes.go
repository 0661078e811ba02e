// Package server wires handlers and middleware into the gin router.
package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zenfocus/backend/internal/config"
	"zenfocus/backend/internal/handlers"
	"zenfocus/backend/internal/identity"
	"zenfocus/backend/internal/middleware"
	"zenfocus/backend/internal/monitoring"
	"zenfocus/backend/internal/realtime"
	"zenfocus/backend/internal/session"
)

type Deps struct {
	Config   *config.Config
	Identity *identity.ServiceImpl
	Issuer   *identity.TokenIssuer
	Registry *session.Registry
	Hub      *realtime.Hub
	Health   *monitoring.HealthChecker
	// Limiter is nil when rate limiting is disabled.
	Limiter *middleware.RateLimiter
}

// AllowedOrigins merges the frontend URL with the comma-separated
// ALLOWED_ORIGIN list.
func AllowedOrigins(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var origins []string
	add := func(o string) {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			return
		}
		seen[o] = true
		origins = append(origins, o)
	}
	add(cfg.Server.FrontendURL)
	for _, o := range strings.Split(cfg.Server.AllowedOrigin, ",") {
		add(o)
	}
	return origins
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.RecoveryWithLog(), monitoring.MetricsMiddleware())

	origins := AllowedOrigins(d.Config)
	r.Use(cors.New(corsConfig(origins)))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", d.Health.HealthHandler())
	r.GET("/readyz", d.Health.ReadinessHandler())
	r.GET("/healthz", monitoring.LivenessHandler())

	authHandler := handlers.NewAuthHandler(d.Identity, d.Issuer)
	federated := handlers.NewFederatedHandler(d.Identity, authHandler)
	sessions := handlers.NewSessionHandler(d.Registry)
	ws := handlers.NewWSHandler(sessions, d.Hub, origins)

	requireAuth := middleware.AuthMiddleware(middleware.AuthConfig{Issuer: d.Issuer})

	oauth := r.Group("/auth")
	{
		oauth.GET("/:provider", federated.Begin)
		oauth.GET("/:provider/callback", federated.Callback)
	}

	r.GET("/ws", middleware.AuthMiddleware(middleware.AuthConfig{Issuer: d.Issuer, AllowQueryToken: true}), ws.Serve)

	api := r.Group("/api/v1")
	if d.Limiter != nil {
		api.Use(middleware.RateLimitMiddleware(d.Limiter))
	}

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.SignUp)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", requireAuth, authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(requireAuth)
	{
		protected.GET("/dashboard", sessions.Dashboard)
		protected.PUT("/filters", sessions.SetFilters)
		protected.POST("/exam-mode", sessions.ToggleExamMode)
		protected.POST("/mood", sessions.SetMood)
		protected.GET("/quote", sessions.Quote)

		protected.POST("/tasks", sessions.CreateTask)
		protected.PATCH("/tasks/:id/toggle", sessions.ToggleTask)
		protected.POST("/tasks/:id/split", sessions.SplitTask)
		protected.DELETE("/tasks/:id", sessions.DeleteTask)

		protected.POST("/subjects", sessions.CreateSubject)
		protected.DELETE("/subjects/:id", sessions.DeleteSubject)
		protected.POST("/topics", sessions.CreateTopic)
		protected.DELETE("/topics/:id", sessions.DeleteTopic)

		protected.POST("/focus/start", sessions.StartFocus)
		protected.POST("/focus/reset", sessions.ResetFocus)
		protected.GET("/focus", sessions.Focus)
	}

	return r
}

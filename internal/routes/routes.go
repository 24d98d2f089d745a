// Package routes defines HTTP routes for the auth service.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prian3003/gotchu-auth/internal/config"
	"github.com/prian3003/gotchu-auth/internal/handlers"
	"github.com/prian3003/gotchu-auth/internal/middleware"
	"github.com/prian3003/gotchu-auth/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup configures all HTTP routes for the application.
func Setup(router *gin.Engine, cfg *config.Config, authService service.AuthService, authHandler *handlers.AuthHandler, healthHandler *handlers.HealthHandler) {
	authMW := middleware.NewAuthMiddleware(authService)

	router.Use(middleware.Security(cfg.AllowedOrigins))
	router.Use(middleware.Metrics())

	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", middleware.RateLimitAuth(authService), authHandler.Register)
		auth.POST("/login", middleware.RateLimitAuth(authService), authHandler.Login)
		auth.POST("/logout", authMW.OptionalAuth(), authHandler.Logout)
		auth.GET("/me", authMW.RequireAuth(), authHandler.Me)
		auth.POST("/refresh", authHandler.Refresh)
	}
}

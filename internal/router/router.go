package router

import (
	"log/slog"

	"github.com/anonto42/pawfolio/backend/internal/handlers"
	"github.com/anonto42/pawfolio/backend/internal/repositories"
	"github.com/anonto42/pawfolio/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// Dependencies are constructed once at start-up and shared by all handlers
type Dependencies struct {
	Store  repositories.UserStore
	Auth   echo.MiddlewareFunc
	Logger *slog.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(deps.Logger)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	api := e.Group("/api")
	api.Use(deps.Auth)

	relationshipService := services.NewRelationshipService(deps.Store, deps.Logger)
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService)
	relationshipHandler.RegisterRelationshipRoutes(api)

	userHandler := handlers.NewUserHandler(deps.Store)
	userHandler.RegisterUserRoutes(api)

	deps.Logger.Info("All routes configured.")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/pawfolio/backend/internal/middleware"
	"github.com/anonto42/pawfolio/backend/internal/repositories"
	"github.com/anonto42/pawfolio/backend/internal/router"
	"github.com/anonto42/pawfolio/backend/pkg/config"
	"github.com/anonto42/pawfolio/backend/pkg/firebase"
	"github.com/anonto42/pawfolio/backend/pkg/logger"
	"github.com/anonto42/pawfolio/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run owns every resource it opens, so all exits go through the deferred closes
func run() error {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(appLogger)

	// Initialize database connections
	db, err := config.InitDB(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}
	defer db.CloseDB()

	store := newUserStore(cfg, db)
	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.EnsureIndexes(indexCtx); err != nil {
		return fmt.Errorf("failed to prepare user storage: %w", err)
	}

	authMiddleware, err := newAuthMiddleware(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize identity provider: %w", err)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	config.SetupMiddleware(e, cfg, appLogger)
	router.SetupRoutes(e, router.Dependencies{
		Store:  store,
		Auth:   authMiddleware,
		Logger: appLogger,
	})

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("server listening", slog.String("port", cfg.Port), slog.String("store", cfg.StoreDriver))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-quit:
	}
	appLogger.Info("shutting down")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(ctx); err != nil {
		appLogger.Error("forced shutdown", slog.Any("error", err))
	}
	return nil
}

func newUserStore(cfg *config.Config, db *config.DB) repositories.UserStore {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return repositories.NewPostgresUserRepository(db.Postgres)
	case config.StoreMemory:
		return repositories.NewMemoryUserRepository()
	default:
		return repositories.NewMongoUserRepository(db.Mongo, db.Mongo.Database(cfg.MongoDatabase))
	}
}

func newAuthMiddleware(cfg *config.Config, logger *slog.Logger) (echo.MiddlewareFunc, error) {
	if cfg.AuthProvider == config.AuthJWT {
		return middleware.JWTAuthMiddleware(cfg.JWTSecret), nil
	}

	provider, err := firebase.NewIdentityProvider(context.Background(), firebase.Settings{
		CredentialsPath: cfg.FirebaseCredentialsPath,
		ProjectID:       cfg.FirebaseProjectID,
	}, logger)
	if err != nil {
		return nil, err
	}
	return middleware.FirebaseAuthMiddleware(provider.Auth), nil
}

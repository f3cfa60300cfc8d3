package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/pawfolio/backend/internal/middleware"
	"github.com/anonto42/pawfolio/backend/internal/models"
	"github.com/anonto42/pawfolio/backend/internal/repositories"
	"github.com/anonto42/pawfolio/backend/internal/services"
	"github.com/anonto42/pawfolio/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// testIdentity resolves the caller from the X-Test-User header so tests can
// act as any user without a token issuer.
func testIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := c.Request().Header.Get("X-Test-User"); id != "" {
			middleware.SetExternalID(c, id)
		}
		return next(c)
	}
}

type testServer struct {
	echo  *echo.Echo
	store *repositories.MemoryUserRepository
}

func newTestServer(t *testing.T, global ...echo.MiddlewareFunc) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewMemoryUserRepository()

	e := echo.New()
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger)
	e.Use(global...)

	api := e.Group("/api", testIdentity)
	NewRelationshipHandler(services.NewRelationshipService(store, logger)).RegisterRelationshipRoutes(api)
	NewUserHandler(store).RegisterUserRoutes(api)
	e.GET("/health", HealthCheck)

	return &testServer{echo: e, store: store}
}

func (s *testServer) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{ExternalID: "ext-" + name, Username: name, Email: name + "@example.com"}
	require.NoError(t, s.store.CreateUser(context.Background(), u))
	return u
}

func (s *testServer) do(t *testing.T, method, path, caller, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if caller != "" {
		req.Header.Set("X-Test-User", caller)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// externalIDKey is the echo context key holding the caller's identity provider subject
const externalIDKey = "externalID"

// ExternalID returns the authenticated caller's external id, or "" when the
// request carries no resolved identity.
func ExternalID(c echo.Context) string {
	id, _ := c.Get(externalIDKey).(string)
	return id
}

// SetExternalID stores the resolved caller identity on the context
func SetExternalID(c echo.Context, externalID string) {
	c.Set(externalIDKey, externalID)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], nil
}

package validators

import (
	"net/http"
	"testing"

	"github.com/anonto42/pawfolio/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&models.RegisterUserRequest{Username: "biscuit", Email: "b@example.com"}))

	err := v.Validate(&models.RegisterUserRequest{Username: "b!", Email: "nope"})
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/anonto42/pawfolio/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// serviceError translates a service failure into the HTTP error returned to the caller
func serviceError(err error) *echo.HTTPError {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, services.MsgInternal).SetInternal(err)
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case services.KindUnauthenticated:
		status = http.StatusUnauthorized
	case services.KindBadRequest, services.KindInvalidOperation, services.KindConflict:
		status = http.StatusBadRequest
	case services.KindNotFound:
		status = http.StatusNotFound
	}

	httpErr := echo.NewHTTPError(status, svcErr.Message)
	if svcErr.Err != nil {
		httpErr.SetInternal(svcErr.Err)
	}
	return httpErr
}

// NewHTTPErrorHandler renders every error as {"error": message}. Messages of
// non-HTTP errors are never exposed.
func NewHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) {
			logger.ErrorContext(c.Request().Context(), "unhandled error",
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
			httpErr = echo.NewHTTPError(http.StatusInternalServerError, services.MsgInternal)
		}

		message, ok := httpErr.Message.(string)
		if !ok || httpErr.Code >= http.StatusInternalServerError {
			message = services.MsgInternal
		}
		if httpErr.Code >= http.StatusInternalServerError && httpErr.Internal != nil {
			logger.ErrorContext(c.Request().Context(), "request failed",
				slog.String("path", c.Path()),
				slog.Any("error", httpErr.Internal),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(httpErr.Code)
		} else {
			err = c.JSON(httpErr.Code, echo.Map{"error": message})
		}
		if err != nil {
			logger.Error("failed to write error response", slog.Any("error", err))
		}
	}
}

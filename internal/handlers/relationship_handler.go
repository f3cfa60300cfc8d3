package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anonto42/pawfolio/backend/internal/middleware"
	"github.com/anonto42/pawfolio/backend/internal/models"
	"github.com/anonto42/pawfolio/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// RelationshipMutator is the follow/unfollow operation the handler drives
type RelationshipMutator interface {
	Mutate(ctx context.Context, subjectExternalID, targetID, action string) (*models.RelationshipCounts, error)
}

// RelationshipHandler handles follow/unfollow HTTP requests
type RelationshipHandler struct {
	mutator RelationshipMutator
}

// NewRelationshipHandler creates a new RelationshipHandler
func NewRelationshipHandler(mutator RelationshipMutator) *RelationshipHandler {
	return &RelationshipHandler{mutator: mutator}
}

// RegisterRelationshipRoutes registers relationship routes
func (h *RelationshipHandler) RegisterRelationshipRoutes(g *echo.Group) {
	g.PATCH("/user/action", h.MutateRelationship)
}

// MutateRelationship follows or unfollows the user named in the body
func (h *RelationshipHandler) MutateRelationship(c echo.Context) error {
	subject := middleware.ExternalID(c)
	if subject == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, services.MsgUnauthorized)
	}

	var req models.RelationshipActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	counts, err := h.mutator.Mutate(c.Request().Context(), subject, req.UserID, req.Action)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("User %sed successfully", req.Action),
		"data":    counts,
	})
}

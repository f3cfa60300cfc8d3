package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/pawfolio/backend/internal/middleware"
	"github.com/anonto42/pawfolio/backend/internal/models"
	"github.com/anonto42/pawfolio/backend/internal/repositories"
	"github.com/anonto42/pawfolio/backend/internal/services"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserHandler handles profile and relationship listing requests
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterUserRoutes registers user routes. Static paths are registered
// before :id so they take precedence.
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.POST("/user/register", h.Register)
	g.GET("/user/me", h.GetMe)
	g.GET("/user/:id", h.GetProfile)
	g.GET("/user/:id/followers", h.GetFollowers)
	g.GET("/user/:id/following", h.GetFollowing)
}

// Register creates the user record for the authenticated caller
func (h *UserHandler) Register(c echo.Context) error {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, services.MsgUnauthorized)
	}

	var req models.RegisterUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user := &models.User{
		ExternalID:   externalID,
		Username:     req.Username,
		Email:        req.Email,
		ProfileImage: req.ProfileImage,
		Bio:          req.Bio,
		Location:     req.Location,
	}
	if err := h.userRepository.CreateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return echo.NewHTTPError(http.StatusConflict, "User already registered")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, services.MsgInternal).SetInternal(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user":    user.Profile(),
	})
}

// GetMe returns the caller's own profile
func (h *UserHandler) GetMe(c echo.Context) error {
	externalID := middleware.ExternalID(c)
	if externalID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, services.MsgUnauthorized)
	}

	user, err := h.userRepository.GetUserByExternalID(c.Request().Context(), externalID)
	if err != nil {
		return lookupFailure(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Profile()})
}

// GetProfile returns a user's public profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.userFromParam(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Profile()})
}

// GetFollowers lists the users following :id
func (h *UserHandler) GetFollowers(c echo.Context) error {
	user, err := h.userFromParam(c)
	if err != nil {
		return err
	}
	return h.listUsers(c, user.Followers)
}

// GetFollowing lists the users :id follows
func (h *UserHandler) GetFollowing(c echo.Context) error {
	user, err := h.userFromParam(c)
	if err != nil {
		return err
	}
	return h.listUsers(c, user.Following)
}

func (h *UserHandler) listUsers(c echo.Context, ids []primitive.ObjectID) error {
	users, err := h.userRepository.GetUsersByIDs(c.Request().Context(), ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, services.MsgInternal).SetInternal(err)
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, users[i].Summary())
	}
	return c.JSON(http.StatusOK, echo.Map{"data": summaries, "count": len(summaries)})
}

func (h *UserHandler) userFromParam(c echo.Context) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, services.MsgInvalidIDFormat)
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return nil, lookupFailure(err)
	}
	return user, nil
}

func lookupFailure(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, services.MsgUserNotFound)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, services.MsgInternal).SetInternal(err)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloghive/auth-service/internal/service"
	appErrors "github.com/bloghive/auth-service/pkg/errors"
	"github.com/bloghive/auth-service/pkg/response"
)

// UserHandler serves the internal user lookup endpoints other services use
// to resolve identities.
type UserHandler struct {
	service *service.AuthService
}

// NewUserHandler creates a new handler.
func NewUserHandler(svc *service.AuthService) *UserHandler {
	return &UserHandler{service: svc}
}

// GetByID godoc
// @Summary Get user by ID
// @Description Internal lookup of a user's public projection
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/users/{id} [get]
func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user id"))
		return
	}

	info, err := h.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info)
}

// GetByUsername godoc
// @Summary Get user by username
// @Description Internal lookup of a user's public projection
// @Tags Users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/users/username/{username} [get]
func (h *UserHandler) GetByUsername(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "username required"))
		return
	}

	info, err := h.service.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info)
}

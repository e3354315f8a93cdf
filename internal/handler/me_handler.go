package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
)

// MeResponse is the signed-in user with what the dashboard needs to render
type MeResponse struct {
	*domain.User
	Config domain.InterestConfig `json:"config"`
}

// MeHandler returns the authenticated user's profile
type MeHandler struct {
	config ConfigSource
}

// ConfigSource supplies the current interest configuration
type ConfigSource interface {
	Current() domain.InterestConfig
}

// NewMeHandler creates a new MeHandler
func NewMeHandler(config ConfigSource) *MeHandler {
	return &MeHandler{config: config}
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} ProblemDetails
// @Router /me [get]
func (h *MeHandler) Me(c echo.Context) error {
	user := middleware.GetUser(c)
	if user == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	return c.JSON(http.StatusOK, MeResponse{User: user, Config: h.config.Current()})
}

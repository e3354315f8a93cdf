package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
	"github.com/prestadiario/prestadiario-backend/internal/service"
	"github.com/shopspring/decimal"
)

// ConfigHandler serves the interest rate and currency configuration
type ConfigHandler struct {
	provider *service.ConfigProvider
}

// NewConfigHandler creates a new ConfigHandler
func NewConfigHandler(provider *service.ConfigProvider) *ConfigHandler {
	return &ConfigHandler{provider: provider}
}

// UpdateConfigRequest represents the update config request body
type UpdateConfigRequest struct {
	Rate         string `json:"rate"`
	CurrencyCode string `json:"currencyCode"`
}

// GetConfig godoc
// @Summary Current interest configuration
// @Tags config
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.InterestConfig
// @Router /config [get]
func (h *ConfigHandler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.provider.Current())
}

// UpdateConfig godoc
// @Summary Change the interest configuration
// @Description Admin only. Appends a new configuration row; existing loans keep their rate.
// @Tags config
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateConfigRequest true "Configuration"
// @Success 200 {object} domain.InterestConfig
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /config [put]
func (h *ConfigHandler) UpdateConfig(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}

	var req UpdateConfigRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Cuerpo de la solicitud inválido", nil)
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		return NewValidationError(c, "Tasa inválida", []ValidationError{
			{Field: "rate", Message: "Debe ser un número válido"},
		})
	}

	cfg, err := h.provider.UpdateConfig(c.Request().Context(), actor.ID, rate, req.CurrencyCode)
	if err != nil {
		return HandleServiceError(c, err, "update_config")
	}
	return c.JSON(http.StatusOK, cfg)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
	"github.com/prestadiario/prestadiario-backend/internal/service"
)

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetSummary godoc
// @Summary Collector overview
// @Description Loan counts, outstanding balance and today's collections. Admins pick the collector with collectorId.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param collectorId query string false "Admin only, required for admins"
// @Success 200 {object} domain.CollectorSummary
// @Failure 400 {object} ProblemDetails
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}

	collectorID := actor.ID
	if actor.IsAdmin() {
		id, ok := optionalUUIDQuery(c, "collectorId")
		if !ok {
			return invalidCollectorQuery(c)
		}
		if id == nil {
			return NewValidationError(c, "Seleccione un cobrador", []ValidationError{
				{Field: "collectorId", Message: "Requerido"},
			})
		}
		collectorID = *id
	}

	summary, err := h.dashboardService.CollectorSummary(c.Request().Context(), collectorID)
	if err != nil {
		return HandleServiceError(c, err, "dashboard_summary")
	}
	return c.JSON(http.StatusOK, summary)
}

// GetAdminOverview godoc
// @Summary Admin overview
// @Description Per-collector summaries plus totals
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.AdminOverview
// @Failure 403 {object} ProblemDetails
// @Router /admin/overview [get]
func (h *DashboardHandler) GetAdminOverview(c echo.Context) error {
	overview, err := h.dashboardService.AdminOverview(c.Request().Context())
	if err != nil {
		return HandleServiceError(c, err, "admin_overview")
	}
	return c.JSON(http.StatusOK, overview)
}

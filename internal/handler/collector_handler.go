package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
	"github.com/prestadiario/prestadiario-backend/internal/service"
)

// CollectorHandler handles admin oversight of collectors
type CollectorHandler struct {
	collectorService *service.CollectorService
	loanService      *service.LoanService
}

// NewCollectorHandler creates a new CollectorHandler
func NewCollectorHandler(collectorService *service.CollectorService, loanService *service.LoanService) *CollectorHandler {
	return &CollectorHandler{collectorService: collectorService, loanService: loanService}
}

// SetActiveRequest represents the activate/deactivate request body
type SetActiveRequest struct {
	Active *bool `json:"active"`
}

// AssignLoanRequest represents the reassign loan request body
type AssignLoanRequest struct {
	CollectorID     string `json:"collectorId"`
	ExpectedVersion int32  `json:"expectedVersion"`
}

// ListCollectors godoc
// @Summary List collectors
// @Tags collectors
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.User
// @Failure 403 {object} ProblemDetails
// @Router /collectors [get]
func (h *CollectorHandler) ListCollectors(c echo.Context) error {
	collectors, err := h.collectorService.ListCollectors(c.Request().Context())
	if err != nil {
		return HandleServiceError(c, err, "list_collectors")
	}
	return c.JSON(http.StatusOK, collectors)
}

// SetCollectorActive godoc
// @Summary Activate or deactivate a collector
// @Description Inactive collectors are rejected at login and cannot receive loans.
// @Tags collectors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Collector ID"
// @Param request body SetActiveRequest true "Active flag"
// @Success 200 {object} domain.User
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /collectors/{id}/active [put]
func (h *CollectorHandler) SetCollectorActive(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Identificador de cobrador inválido", nil)
	}

	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Cuerpo de la solicitud inválido", nil)
	}
	if req.Active == nil {
		return NewValidationError(c, "Falta el estado", []ValidationError{
			{Field: "active", Message: "Requerido"},
		})
	}

	user, err := h.collectorService.SetCollectorActive(c.Request().Context(), actor, id, *req.Active)
	if err != nil {
		return HandleServiceError(c, err, "set_collector_active")
	}
	return c.JSON(http.StatusOK, user)
}

// AssignLoan godoc
// @Summary Reassign a loan to another collector
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body AssignLoanRequest true "Target collector"
// @Success 200 {object} service.LoanView
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id}/assign [post]
func (h *CollectorHandler) AssignLoan(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	loanID, ok := loanIDParam(c)
	if !ok {
		return NewValidationError(c, "Identificador de préstamo inválido", nil)
	}

	var req AssignLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Cuerpo de la solicitud inválido", nil)
	}
	if req.ExpectedVersion < 1 {
		return missingVersion(c)
	}
	collectorID, err := uuid.Parse(req.CollectorID)
	if err != nil {
		return NewValidationError(c, "Identificador de cobrador inválido", []ValidationError{
			{Field: "collectorId", Message: "Debe ser un UUID"},
		})
	}

	loan, err := h.collectorService.ReassignLoan(c.Request().Context(), actor, loanID, collectorID, req.ExpectedVersion)
	if err != nil {
		return HandleServiceError(c, err, "assign_loan")
	}
	return c.JSON(http.StatusOK, service.NewLoanView(loan, h.loanService.Today()))
}

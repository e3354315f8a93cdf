package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
	"github.com/prestadiario/prestadiario-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest represents the create loan request body
type CreateLoanRequest struct {
	CollectorID  *string `json:"collectorId,omitempty"` // Admin only: issue on behalf of a collector
	BorrowerName string  `json:"borrowerName"`
	NationalID   string  `json:"nationalId"`
	Phone        string  `json:"phone"`
	Address      string  `json:"address"`
	Principal    string  `json:"principal"`
	Frequency    string  `json:"frequency"`
}

// PreviewLoanRequest represents the preview loan request body
type PreviewLoanRequest struct {
	Principal string `json:"principal"`
	Frequency string `json:"frequency"`
}

// RegisterPaymentRequest represents a collection made at the borrower's door
type RegisterPaymentRequest struct {
	Installments    int32   `json:"installments"`
	Method          string  `json:"method"`
	Notes           *string `json:"notes,omitempty"`
	ExpectedVersion int32   `json:"expectedVersion"`
}

// VersionedRequest carries only the optimistic concurrency token
type VersionedRequest struct {
	ExpectedVersion int32 `json:"expectedVersion"`
}

// RenewLoanRequest represents the renew loan request body
type RenewLoanRequest struct {
	NewPrincipal    string `json:"newPrincipal"`
	ExpectedVersion int32  `json:"expectedVersion"`
}

// CreateLoan godoc
// @Summary Issue a loan
// @Description Issue a loan at the current interest rate. Rejected if the borrower already has an open loan.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body CreateLoanRequest true "Loan"
// @Success 201 {object} service.LoanView
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}

	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Cuerpo de la solicitud inválido", nil)
	}

	var errs []ValidationError
	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		errs = append(errs, ValidationError{Field: "principal", Message: "Debe ser un número válido"})
	}
	frequency, err := domain.ParseFrequency(req.Frequency)
	if err != nil {
		errs = append(errs, ValidationError{Field: "frequency", Message: "Debe ser diario, semanal o quincenal"})
	}
	var collectorID *uuid.UUID
	if req.CollectorID != nil && *req.CollectorID != "" {
		id, err := uuid.Parse(*req.CollectorID)
		if err != nil {
			errs = append(errs, ValidationError{Field: "collectorId", Message: "Identificador inválido"})
		}
		collectorID = &id
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Datos del préstamo inválidos", errs)
	}

	loan, err := h.loanService.CreateLoan(c.Request().Context(), actor, service.CreateLoanInput{
		CollectorID: collectorID,
		Borrower: domain.Borrower{
			Name:       req.BorrowerName,
			NationalID: req.NationalID,
			Phone:      req.Phone,
			Address:    req.Address,
		},
		Principal: principal,
		Frequency: frequency,
	})
	if err != nil {
		return HandleServiceError(c, err, "create_loan")
	}

	return c.JSON(http.StatusCreated, service.NewLoanView(loan, h.loanService.Today()))
}

// PreviewLoan godoc
// @Summary Preview loan installments
// @Description Installment value, count and first collection date for a loan issued today. Nothing is stored.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PreviewLoanRequest true "Terms"
// @Success 200 {object} service.LoanPreview
// @Failure 400 {object} ProblemDetails
// @Router /loans/preview [post]
func (h *LoanHandler) PreviewLoan(c echo.Context) error {
	var req PreviewLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Cuerpo de la solicitud inválido", nil)
	}
	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return NewValidationError(c, "Monto inválido", []ValidationError{
			{Field: "principal", Message: "Debe ser un número válido"},
		})
	}
	frequency, err := domain.ParseFrequency(req.Frequency)
	if err != nil {
		return NewValidationError(c, "Frecuencia de cobro no válida", []ValidationError{
			{Field: "frequency", Message: "Debe ser diario, semanal o quincenal"},
		})
	}

	preview, err := h.loanService.PreviewLoan(c.Request().Context(), service.PreviewLoanInput{
		Principal: principal,
		Frequency: frequency,
	})
	if err != nil {
		return HandleServiceError(c, err, "preview_loan")
	}
	return c.JSON(http.StatusOK, preview)
}

// ListLoans godoc
// @Summary List loans
// @Description Collectors see their own loans; admins see all or filter by collector.
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param state query string false "all, open or completed" default(open)
// @Param collectorId query string false "Admin only: one collector's loans"
// @Success 200 {array} service.LoanView
// @Failure 400 {object} ProblemDetails
// @Router /loans [get]
func (h *LoanHandler) ListLoans(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}

	filter := domain.LoanFilterOpen
	switch state := c.QueryParam("state"); state {
	case "":
	case string(domain.LoanFilterAll), string(domain.LoanFilterOpen), string(domain.LoanFilterCompleted):
		filter = domain.LoanFilter(state)
	default:
		return NewValidationError(c, "Filtro inválido", []ValidationError{
			{Field: "state", Message: "Debe ser all, open o completed"},
		})
	}
	collectorID, ok := optionalUUIDQuery(c, "collectorId")
	if !ok {
		return invalidCollectorQuery(c)
	}

	loans, err := h.loanService.ListLoans(c.Request().Context(), actor, filter, collectorID)
	if err != nil {
		return HandleServiceError(c, err, "list_loans")
	}
	return c.JSON(http.StatusOK, loans)
}

// ListDueToday godoc
// @Summary Today's collection route
// @Description Open loans due today or earlier, most overdue first
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param collectorId query string false "Admin only: one collector's route"
// @Success 200 {array} service.LoanView
// @Router /loans/due-today [get]
func (h *LoanHandler) ListDueToday(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	collectorID, ok := optionalUUIDQuery(c, "collectorId")
	if !ok {
		return invalidCollectorQuery(c)
	}

	loans, err := h.loanService.ListDueToday(c.Request().Context(), actor, collectorID)
	if err != nil {
		return HandleServiceError(c, err, "list_due_today")
	}
	return c.JSON(http.StatusOK, loans)
}

// GetLoan godoc
// @Summary Get a loan
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {object} service.LoanView
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id} [get]
func (h *LoanHandler) GetLoan(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	id, ok := loanIDParam(c)
	if !ok {
		return NewValidationError(c, "Identificador de préstamo inválido", nil)
	}

	loan, err := h.loanService.GetLoan(c.Request().Context(), actor, id)
	if err != nil {
		return HandleServiceError(c, err, "get_loan")
	}
	return c.JSON(http.StatusOK, loan)
}

// DeleteLoan godoc
// @Summary Delete a loan
// @Description Admin only. Payments are removed with the loan; ledger entries are kept.
// @Tags loans
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id} [delete]
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	id, ok := loanIDParam(c)
	if !ok {
		return NewValidationError(c, "Identificador de préstamo inválido", nil)
	}

	if err := h.loanService.DeleteLoan(c.Request().Context(), actor, id); err != nil {
		return HandleServiceError(c, err, "delete_loan")
	}

	log.Info().Str("loan_id", id.String()).Str("admin_id", actor.ID.String()).Msg("Loan deleted")
	return c.NoContent(http.StatusNoContent)
}

// ListPayments godoc
// @Summary List a loan's payments
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {array} domain.LoanPayment
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id}/payments [get]
func (h *LoanHandler) ListPayments(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	id, ok := loanIDParam(c)
	if !ok {
		return NewValidationError(c, "Identificador de préstamo inválido", nil)
	}

	payments, err := h.loanService.ListPayments(c.Request().Context(), actor, id)
	if err != nil {
		return HandleServiceError(c, err, "list_payments")
	}
	return c.JSON(http.StatusOK, payments)
}

// RegisterPayment godoc
// @Summary Register a payment
// @Description Record installments collected today. Fails with 409 if the loan changed since expectedVersion.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body RegisterPaymentRequest true "Payment"
// @Success 201 {object} service.PaymentResult
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id}/payments [post]
func (h *LoanHandler) RegisterPayment(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	id, ok := loanIDParam(c)
	if !ok {
		return NewValidationError(c, "Identificador de préstamo inválido", nil)
	}

	var req RegisterPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Cuerpo de la solicitud inválido", nil)
	}
	if req.ExpectedVersion < 1 {
		return missingVersion(c)
	}
	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		return NewValidationError(c, "Método de pago no válido", []ValidationError{
			{Field: "method", Message: "Debe ser efectivo, transferencia o tarjeta"},
		})
	}

	result, err := h.loanService.RegisterPayment(c.Request().Context(), actor, id, service.RegisterPaymentInput{
		Installments:    req.Installments,
		Method:          method,
		Notes:           req.Notes,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return HandleServiceError(c, err, "register_payment")
	}
	return c.JSON(http.StatusCreated, result)
}

// RegisterNonPayment godoc
// @Summary Register a missed collection
// @Description Marks the loan delinquent and schedules the next visit
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body VersionedRequest true "Version"
// @Success 200 {object} service.LoanView
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id}/non-payment [post]
func (h *LoanHandler) RegisterNonPayment(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	id, ok := loanIDParam(c)
	if !ok {
		return NewValidationError(c, "Identificador de préstamo inválido", nil)
	}

	var req VersionedRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Cuerpo de la solicitud inválido", nil)
	}
	if req.ExpectedVersion < 1 {
		return missingVersion(c)
	}

	loan, err := h.loanService.RegisterNonPayment(c.Request().Context(), actor, id, req.ExpectedVersion)
	if err != nil {
		return HandleServiceError(c, err, "register_non_payment")
	}
	return c.JSON(http.StatusOK, service.NewLoanView(loan, h.loanService.Today()))
}

// RenewLoan godoc
// @Summary Renew a loan
// @Description Settles the outstanding balance with a new loan. The borrower receives newPrincipal minus the balance.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body RenewLoanRequest true "Renewal"
// @Success 201 {object} service.RenewalResult
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id}/renew [post]
func (h *LoanHandler) RenewLoan(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}
	id, ok := loanIDParam(c)
	if !ok {
		return NewValidationError(c, "Identificador de préstamo inválido", nil)
	}

	var req RenewLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Cuerpo de la solicitud inválido", nil)
	}
	if req.ExpectedVersion < 1 {
		return missingVersion(c)
	}
	newPrincipal, err := decimal.NewFromString(req.NewPrincipal)
	if err != nil {
		return NewValidationError(c, "Monto inválido", []ValidationError{
			{Field: "newPrincipal", Message: "Debe ser un número válido"},
		})
	}

	result, err := h.loanService.RenewLoan(c.Request().Context(), actor, id, newPrincipal, req.ExpectedVersion)
	if err != nil {
		return HandleServiceError(c, err, "renew_loan")
	}
	return c.JSON(http.StatusCreated, result)
}

func loanIDParam(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

// optionalUUIDQuery parses an optional UUID query parameter; ok is false only
// for a malformed value.
func optionalUUIDQuery(c echo.Context, name string) (*uuid.UUID, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func invalidCollectorQuery(c echo.Context) error {
	return NewValidationError(c, "Identificador inválido", []ValidationError{
		{Field: "collectorId", Message: "Debe ser un UUID"},
	})
}

func missingVersion(c echo.Context) error {
	return NewValidationError(c, "Falta la versión esperada del préstamo", []ValidationError{
		{Field: "expectedVersion", Message: "Requerido"},
	})
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/calendar"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
	"github.com/prestadiario/prestadiario-backend/internal/service"
)

// TransactionHandler serves the ledger
type TransactionHandler struct {
	loanService *service.LoanService
	location    *time.Location
}

// NewTransactionHandler creates a new TransactionHandler. Date filters are
// interpreted in the calendar's location.
func NewTransactionHandler(loanService *service.LoanService, cal *calendar.Calendar) *TransactionHandler {
	return &TransactionHandler{loanService: loanService, location: cal.Location()}
}

// GetTransactions godoc
// @Summary List ledger entries
// @Description Newest first. Collectors only see their own entries.
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param collectorId query string false "Admin only"
// @Param loanId query string false "One loan's entries"
// @Param type query string false "cobro, pago or ajuste"
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day inclusive, YYYY-MM-DD"
// @Param limit query int false "Max entries (default 50, max 500)"
// @Success 200 {array} domain.Transaction
// @Failure 400 {object} ProblemDetails
// @Router /transactions [get]
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	actor := middleware.GetUser(c)
	if actor == nil {
		return NewUnauthorizedError(c, "No autenticado")
	}

	var filters domain.TransactionFilters
	var errs []ValidationError

	collectorID, ok := optionalUUIDQuery(c, "collectorId")
	if !ok {
		errs = append(errs, ValidationError{Field: "collectorId", Message: "Debe ser un UUID"})
	}
	filters.CollectorID = collectorID

	loanID, ok := optionalUUIDQuery(c, "loanId")
	if !ok {
		errs = append(errs, ValidationError{Field: "loanId", Message: "Debe ser un UUID"})
	}
	filters.LoanID = loanID

	if t := c.QueryParam("type"); t != "" {
		txType := domain.TransactionType(t)
		switch txType {
		case domain.TransactionTypeCollection, domain.TransactionTypeDisbursement, domain.TransactionTypeAdjustment:
			filters.Type = &txType
		default:
			errs = append(errs, ValidationError{Field: "type", Message: "Debe ser cobro, pago o ajuste"})
		}
	}

	if s := c.QueryParam("from"); s != "" {
		d, err := calendar.ParseDate(s)
		if err != nil {
			errs = append(errs, ValidationError{Field: "from", Message: "Use AAAA-MM-DD"})
		} else {
			from := d.In(h.location)
			filters.From = &from
		}
	}
	if s := c.QueryParam("to"); s != "" {
		d, err := calendar.ParseDate(s)
		if err != nil {
			errs = append(errs, ValidationError{Field: "to", Message: "Use AAAA-MM-DD"})
		} else {
			to := d.AddDays(1).In(h.location)
			filters.To = &to
		}
	}

	if s := c.QueryParam("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			errs = append(errs, ValidationError{Field: "limit", Message: "Debe ser un entero positivo"})
		} else {
			if limit > domain.MaxTransactionLimit {
				limit = domain.MaxTransactionLimit
			}
			filters.Limit = int32(limit)
		}
	}

	if len(errs) > 0 {
		return NewValidationError(c, "Filtros inválidos", errs)
	}

	txs, err := h.loanService.ListTransactions(c.Request().Context(), actor, filters)
	if err != nil {
		return HandleServiceError(c, err, "list_transactions")
	}
	return c.JSON(http.StatusOK, txs)
}

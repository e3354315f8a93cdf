package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://prestadiario.app/errors/validation"
	ErrorTypeNotFound     = "https://prestadiario.app/errors/not-found"
	ErrorTypeUnauthorized = "https://prestadiario.app/errors/unauthorized"
	ErrorTypeForbidden    = "https://prestadiario.app/errors/forbidden"
	ErrorTypeConflict     = "https://prestadiario.app/errors/conflict"
	ErrorTypeUnavailable  = "https://prestadiario.app/errors/unavailable"
	ErrorTypeInternal     = "https://prestadiario.app/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail)
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail)
}

// NewUnavailableError creates a service unavailable error response
func NewUnavailableError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusServiceUnavailable, ErrorTypeUnavailable, "Service Unavailable", detail)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail)
}

func newProblem(c echo.Context, status int, errorType, title, detail string) error {
	return c.JSON(status, ProblemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// errorMessages holds the user-facing text for specific errors, checked in order
var errorMessages = []struct {
	err error
	msg string
}{
	{domain.ErrPrincipalNotPositive, "El monto del préstamo debe ser mayor que cero"},
	{domain.ErrNegativeRate, "La tasa de interés no puede ser negativa"},
	{domain.ErrRateOutOfRange, "La tasa de interés debe estar entre 0 y 100"},
	{domain.ErrNegativeOperand, "Los valores no pueden ser negativos"},
	{domain.ErrPaidExceedsTotal, "Las cuotas pagadas superan el total de cuotas"},
	{domain.ErrInvalidFrequency, "Frecuencia de cobro no válida"},
	{domain.ErrInstallmentsOutOfRange, "El número de cuotas a pagar debe estar entre 1 y las cuotas pendientes"},
	{domain.ErrRenewalPrincipalTooLow, "El nuevo monto debe ser mayor que el saldo pendiente"},
	{domain.ErrRenewalNotAllowed, "El préstamo tiene demasiadas cuotas pendientes para renovarse"},
	{domain.ErrLoanCompleted, "El préstamo ya está completado"},
	{domain.ErrActiveLoanExists, "El cliente ya tiene un préstamo activo"},
	{domain.ErrBorrowerFieldsRequired, "El nombre y la cédula del cliente son obligatorios"},
	{domain.ErrInvalidCurrency, "La moneda debe ser un código de 3 letras"},
	{domain.ErrInvalidPaymentMethod, "Método de pago no válido"},
	{domain.ErrCalendarYearUnknown, "No hay calendario de festivos para ese año"},
	{domain.ErrNotACollector, "El usuario no es un cobrador"},
	{domain.ErrDelinquencyNotApplicable, "El préstamo no tiene cuotas vencidas"},
	{domain.ErrInvalidPolicy, "Política de cobro inválida"},
	{domain.ErrMalformedDate, "Fecha con formato inválido, use AAAA-MM-DD"},
	{domain.ErrCollectorInactive, "El cobrador está inactivo"},
	{domain.ErrAdminRequired, "Se requiere rol de administrador"},
	{domain.ErrLoanNotFound, "Préstamo no encontrado"},
	{domain.ErrUserNotFound, "Usuario no encontrado"},
	{domain.ErrConfigNotFound, "Configuración no encontrada"},
	{domain.ErrVersionMismatch, "El préstamo fue modificado por otra solicitud, recargue e intente de nuevo"},
}

func userMessage(err error, fallback string) string {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return fallback
}

// HandleServiceError writes the Problem Details response matching err's class.
// Unclassified errors are logged and reported as 500.
func HandleServiceError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMalformedDate):
		return NewValidationError(c, userMessage(err, "Solicitud inválida"), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return NewUnauthorizedError(c, userMessage(err, "No autenticado"))
	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, userMessage(err, "Acción no permitida"))
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, userMessage(err, "Recurso no encontrado"))
	case errors.Is(err, domain.ErrConflict):
		return NewConflictError(c, userMessage(err, "Conflicto de concurrencia, intente de nuevo"))
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Warn().Err(err).Str("action", action).Msg("Store unavailable")
		return NewUnavailableError(c, "El servicio de datos no está disponible, intente de nuevo")
	}
	log.Error().Err(err).Str("action", action).Msg("Request failed")
	return NewInternalError(c, "Error interno del servidor")
}

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantDetail string
	}{
		{"specific invalid argument", domain.ErrInstallmentsOutOfRange, http.StatusBadRequest, ErrorTypeValidation,
			"El número de cuotas a pagar debe estar entre 1 y las cuotas pendientes"},
		{"wrapped invalid argument", fmt.Errorf("create loan: %w", domain.ErrPrincipalNotPositive), http.StatusBadRequest, ErrorTypeValidation,
			"El monto del préstamo debe ser mayor que cero"},
		{"malformed date", domain.ErrMalformedDate, http.StatusBadRequest, ErrorTypeValidation,
			"Fecha con formato inválido, use AAAA-MM-DD"},
		{"bare invalid argument", domain.ErrInvalidArgument, http.StatusBadRequest, ErrorTypeValidation, "Solicitud inválida"},
		{"forbidden", domain.ErrCollectorInactive, http.StatusForbidden, ErrorTypeForbidden, "El cobrador está inactivo"},
		{"not found", domain.ErrLoanNotFound, http.StatusNotFound, ErrorTypeNotFound, "Préstamo no encontrado"},
		{"version mismatch", domain.ErrVersionMismatch, http.StatusConflict, ErrorTypeConflict,
			"El préstamo fue modificado por otra solicitud, recargue e intente de nuevo"},
		{"bare conflict", domain.ErrConflict, http.StatusConflict, ErrorTypeConflict, "Conflicto de concurrencia, intente de nuevo"},
		{"store unavailable", fmt.Errorf("get loan: %w", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, ErrorTypeUnavailable,
			"El servicio de datos no está disponible, intente de nuevo"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrorTypeInternal, "Error interno del servidor"},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			assert.NoError(t, HandleServiceError(c, tt.err, "test"))

			assert.Equal(t, tt.wantStatus, rec.Code)
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantDetail, problem.Detail)
			assert.Equal(t, "/api/v1/loans", problem.Instance)
		})
	}
}

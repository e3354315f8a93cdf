package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLoan_Success(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"borrowerName":"Ana Gómez","nationalId":"1020","phone":"3001234567","principal":"200000","frequency":"semanal"}`
	rec := f.call(t, f.handlers.Loan.CreateLoan, f.collector, http.MethodPost, "/api/v1/loans", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view struct {
		ID                  uuid.UUID `json:"id"`
		CollectorID         uuid.UUID `json:"collectorId"`
		InstallmentValue    string    `json:"installmentValue"`
		PendingBalance      string    `json:"pendingBalance"`
		NextDueDate         string    `json:"nextDueDate"`
		State               string    `json:"state"`
		Version             int32     `json:"version"`
		PendingInstallments int32     `json:"pendingInstallments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	assert.Equal(t, f.collector.ID, view.CollectorID)
	assert.Equal(t, "52500", view.InstallmentValue)
	assert.Equal(t, "210000", view.PendingBalance)
	assert.Equal(t, "2025-10-17", view.NextDueDate)
	assert.Equal(t, "al_dia", view.State)
	assert.Equal(t, int32(1), view.Version)
	assert.Equal(t, int32(4), view.PendingInstallments)
	assert.NotNil(t, f.loans.Stored(view.ID))
}

func TestCreateLoan_ValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"borrowerName":"Ana","nationalId":"1020","principal":"mucho","frequency":"mensual"}`
	rec := f.call(t, f.handlers.Loan.CreateLoan, f.collector, http.MethodPost, "/api/v1/loans", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, ErrorTypeValidation, problem.Type)
	require.Len(t, problem.Errors, 2)
	assert.Equal(t, "principal", problem.Errors[0].Field)
	assert.Equal(t, "frequency", problem.Errors[1].Field)
	assert.Empty(t, f.loans.Loans)
}

func TestCreateLoan_BorrowerWithOpenLoan(t *testing.T) {
	f := newAPIFixture(t)
	f.createLoan(t, f.collector, "1020")

	body := `{"borrowerName":"Ana Gómez","nationalId":"1020","principal":"100000","frequency":"diario"}`
	rec := f.call(t, f.handlers.Loan.CreateLoan, f.other, http.MethodPost, "/api/v1/loans", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "El cliente ya tiene un préstamo activo", decodeProblem(t, rec).Detail)
}

func TestCreateLoan_AdminOnBehalfOfCollector(t *testing.T) {
	f := newAPIFixture(t)

	body := fmt.Sprintf(`{"collectorId":%q,"borrowerName":"Luis","nationalId":"77","principal":"50000","frequency":"diario"}`, f.other.ID)
	rec := f.call(t, f.handlers.Loan.CreateLoan, f.admin, http.MethodPost, "/api/v1/loans", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view service.LoanView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, f.other.ID, view.CollectorID)
}

func TestCreateLoan_Unauthenticated(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.call(t, f.handlers.Loan.CreateLoan, nil, http.MethodPost, "/api/v1/loans", `{}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPreviewLoan(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.call(t, f.handlers.Loan.PreviewLoan, f.collector, http.MethodPost, "/api/v1/loans/preview",
		`{"principal":"200000","frequency":"semanal"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"2025-10-17"`)
	assert.Empty(t, f.loans.Loans)

	rec = f.call(t, f.handlers.Loan.PreviewLoan, f.collector, http.MethodPost, "/api/v1/loans/preview",
		`{"principal":"0","frequency":"semanal"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "El monto del préstamo debe ser mayor que cero", decodeProblem(t, rec).Detail)
}

func TestGetLoan_Visibility(t *testing.T) {
	f := newAPIFixture(t)
	loan := f.createLoan(t, f.collector, "1020")

	tests := []struct {
		name   string
		user   *domain.User
		id     string
		status int
	}{
		{"owner", f.collector, loan.ID.String(), http.StatusOK},
		{"admin", f.admin, loan.ID.String(), http.StatusOK},
		{"other collector", f.other, loan.ID.String(), http.StatusNotFound},
		{"unknown loan", f.collector, uuid.NewString(), http.StatusNotFound},
		{"malformed id", f.collector, "abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.call(t, f.handlers.Loan.GetLoan, tt.user, http.MethodGet, "/api/v1/loans/"+tt.id, "", "id", tt.id)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestListLoans(t *testing.T) {
	f := newAPIFixture(t)
	f.createLoan(t, f.collector, "1")
	f.createLoan(t, f.collector, "2")
	f.createLoan(t, f.other, "3")

	count := func(rec interface{ Bytes() []byte }) int {
		var views []service.LoanView
		require.NoError(t, json.Unmarshal(rec.Bytes(), &views))
		return len(views)
	}

	rec := f.call(t, f.handlers.Loan.ListLoans, f.collector, http.MethodGet, "/api/v1/loans", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, count(rec.Body))

	rec = f.call(t, f.handlers.Loan.ListLoans, f.admin, http.MethodGet, "/api/v1/loans", "")
	assert.Equal(t, 3, count(rec.Body))

	rec = f.call(t, f.handlers.Loan.ListLoans, f.admin, http.MethodGet, "/api/v1/loans?collectorId="+f.other.ID.String(), "")
	assert.Equal(t, 1, count(rec.Body))

	rec = f.call(t, f.handlers.Loan.ListLoans, f.admin, http.MethodGet, "/api/v1/loans?state=completed", "")
	assert.Equal(t, 0, count(rec.Body))

	rec = f.call(t, f.handlers.Loan.ListLoans, f.admin, http.MethodGet, "/api/v1/loans?state=vencidos", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call(t, f.handlers.Loan.ListLoans, f.admin, http.MethodGet, "/api/v1/loans?collectorId=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterPayment(t *testing.T) {
	f := newAPIFixture(t)
	loan := f.createLoan(t, f.collector, "1020")
	id := loan.ID.String()
	target := "/api/v1/loans/" + id + "/payments"

	t.Run("missing version", func(t *testing.T) {
		rec := f.call(t, f.handlers.Loan.RegisterPayment, f.collector, http.MethodPost, target, `{"installments":1}`, "id", id)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "expectedVersion", decodeProblem(t, rec).Errors[0].Field)
	})

	t.Run("too many installments", func(t *testing.T) {
		rec := f.call(t, f.handlers.Loan.RegisterPayment, f.collector, http.MethodPost, target, `{"installments":5,"expectedVersion":1}`, "id", id)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown method", func(t *testing.T) {
		rec := f.call(t, f.handlers.Loan.RegisterPayment, f.collector, http.MethodPost, target, `{"installments":1,"method":"bitcoin","expectedVersion":1}`, "id", id)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("collected", func(t *testing.T) {
		rec := f.call(t, f.handlers.Loan.RegisterPayment, f.collector, http.MethodPost, target, `{"installments":1,"method":"efectivo","expectedVersion":1}`, "id", id)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var result service.PaymentResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, int32(1), result.Loan.PaidInstallments)
		assert.Equal(t, int32(2), result.Loan.Version)
		assert.Equal(t, "157500", result.Loan.PendingBalance.String())
	})

	t.Run("stale version", func(t *testing.T) {
		rec := f.call(t, f.handlers.Loan.RegisterPayment, f.collector, http.MethodPost, target, `{"installments":1,"expectedVersion":1}`, "id", id)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, ErrorTypeConflict, decodeProblem(t, rec).Type)
	})

	t.Run("other collector", func(t *testing.T) {
		rec := f.call(t, f.handlers.Loan.RegisterPayment, f.other, http.MethodPost, target, `{"installments":1,"expectedVersion":2}`, "id", id)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRegisterNonPayment(t *testing.T) {
	f := newAPIFixture(t)
	loan := f.createLoan(t, f.collector, "1020")
	id := loan.ID.String()

	rec := f.call(t, f.handlers.Loan.RegisterNonPayment, f.collector, http.MethodPost, "/api/v1/loans/"+id+"/non-payment", `{"expectedVersion":1}`, "id", id)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.LoanStateDelinquent, f.loans.Stored(loan.ID).State)
}

func TestRenewLoan(t *testing.T) {
	f := newAPIFixture(t)
	loan := f.createLoan(t, f.collector, "1020")
	id := loan.ID.String()
	target := "/api/v1/loans/" + id + "/renew"

	// Four pending installments is above the renewal threshold
	rec := f.call(t, f.handlers.Loan.RenewLoan, f.collector, http.MethodPost, target, `{"newPrincipal":"300000","expectedVersion":1}`, "id", id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call(t, f.handlers.Loan.RegisterPayment, f.collector, http.MethodPost, "/api/v1/loans/"+id+"/payments", `{"installments":1,"expectedVersion":1}`, "id", id)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.call(t, f.handlers.Loan.RenewLoan, f.collector, http.MethodPost, target, `{"newPrincipal":"150000","expectedVersion":2}`, "id", id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "El nuevo monto debe ser mayor que el saldo pendiente", decodeProblem(t, rec).Detail)

	rec = f.call(t, f.handlers.Loan.RenewLoan, f.collector, http.MethodPost, target, `{"newPrincipal":"300000","expectedVersion":2}`, "id", id)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result service.RenewalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.LoanStateCompleted, result.Closed.State)
	assert.Equal(t, domain.LoanStateRenewed, result.Opened.State)
	assert.Equal(t, "142500", result.CashOut.String())
}

func TestDeleteLoan(t *testing.T) {
	f := newAPIFixture(t)
	loan := f.createLoan(t, f.collector, "1020")
	id := loan.ID.String()

	rec := f.call(t, f.handlers.Loan.DeleteLoan, f.admin, http.MethodDelete, "/api/v1/loans/"+id, "", "id", id)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, f.loans.Stored(loan.ID))

	rec = f.call(t, f.handlers.Loan.DeleteLoan, f.admin, http.MethodDelete, "/api/v1/loans/"+id, "", "id", id)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDueToday_OrdersMostOverdueFirst(t *testing.T) {
	f := newAPIFixture(t)
	fresh := f.createLoan(t, f.collector, "1")
	late := f.createLoan(t, f.collector, "2")

	stored := f.loans.Stored(late.ID)
	stored.NextDueDate = stored.NextDueDate.AddDays(-21)
	f.loans.Loans[late.ID] = stored

	rec := f.call(t, f.handlers.Loan.ListDueToday, f.collector, http.MethodGet, "/api/v1/loans/due-today", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var views []service.LoanView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, late.ID, views[0].ID)
	assert.NotEqual(t, fresh.ID, views[0].ID)
	assert.Equal(t, int32(2), views[0].OverdueInstallments)
}

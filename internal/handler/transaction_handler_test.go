package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(f *apiFixture) (loanID uuid.UUID) {
	loanID = uuid.New()
	f.txs.AddTransaction(&domain.Transaction{
		Type: domain.TransactionTypeCollection, LoanID: loanID, CollectorID: f.collector.ID,
		Amount: decimal.NewFromInt(52500), CreatedAt: time.Date(2025, 10, 9, 18, 0, 0, 0, time.UTC),
	})
	f.txs.AddTransaction(&domain.Transaction{
		Type: domain.TransactionTypeCollection, LoanID: loanID, CollectorID: f.collector.ID,
		Amount: decimal.NewFromInt(52500), CreatedAt: time.Date(2025, 10, 10, 9, 0, 0, 0, time.UTC),
	})
	f.txs.AddTransaction(&domain.Transaction{
		Type: domain.TransactionTypeDisbursement, LoanID: uuid.New(), CollectorID: f.other.ID,
		Amount: decimal.NewFromInt(100000), CreatedAt: time.Date(2025, 10, 10, 23, 59, 0, 0, time.UTC),
	})
	return loanID
}

func listTransactions(t *testing.T, f *apiFixture, user *domain.User, query string) []domain.Transaction {
	t.Helper()
	rec := f.call(t, f.handlers.Transaction.GetTransactions, user, http.MethodGet, "/api/v1/transactions"+query, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var txs []domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	return txs
}

func TestGetTransactions_Filters(t *testing.T) {
	f := newAPIFixture(t)
	loanID := seedLedger(f)

	assert.Len(t, listTransactions(t, f, f.admin, ""), 3)
	assert.Len(t, listTransactions(t, f, f.admin, "?from=2025-10-10&to=2025-10-10"), 2)
	assert.Len(t, listTransactions(t, f, f.admin, "?to=2025-10-09"), 1)
	assert.Len(t, listTransactions(t, f, f.admin, "?type=pago"), 1)
	assert.Len(t, listTransactions(t, f, f.admin, "?loanId="+loanID.String()), 2)
	assert.Len(t, listTransactions(t, f, f.admin, "?collectorId="+f.other.ID.String()), 1)

	limited := listTransactions(t, f, f.admin, "?limit=1")
	require.Len(t, limited, 1)
	assert.Equal(t, f.other.ID, limited[0].CollectorID)
}

func TestGetTransactions_CollectorSeesOwnOnly(t *testing.T) {
	f := newAPIFixture(t)
	seedLedger(f)

	txs := listTransactions(t, f, f.collector, "?collectorId="+f.other.ID.String())

	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, f.collector.ID, tx.CollectorID)
	}
}

func TestGetTransactions_InvalidFilters(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.call(t, f.handlers.Transaction.GetTransactions, f.admin, http.MethodGet,
		"/api/v1/transactions?type=retiro&from=10/10/2025&to=2025-13-01&limit=0&loanId=x", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := []string{}
	for _, e := range decodeProblem(t, rec).Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"loanId", "type", "from", "to", "limit"}, fields)
}

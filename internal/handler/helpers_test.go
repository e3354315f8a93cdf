package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/calendar"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
	"github.com/prestadiario/prestadiario-backend/internal/service"
	"github.com/prestadiario/prestadiario-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// 2025-10-10 is a Friday
var testNow = time.Date(2025, time.October, 10, 15, 0, 0, 0, time.UTC)

type apiFixture struct {
	e         *echo.Echo
	loans     *testutil.MockLoanRepository
	txs       *testutil.MockTransactionRepository
	users     *testutil.MockUserRepository
	configs   *testutil.MockInterestConfigRepository
	loanSvc   *service.LoanService
	provider  *service.ConfigProvider
	cal       *calendar.Calendar
	collector *domain.User
	other     *domain.User
	admin     *domain.User
	handlers  Handlers
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		e:       echo.New(),
		loans:   testutil.NewMockLoanRepository(),
		txs:     testutil.NewMockTransactionRepository(),
		users:   testutil.NewMockUserRepository(),
		configs: testutil.NewMockInterestConfigRepository(),
		cal:     calendar.Default(),
	}
	payments := testutil.NewMockLoanPaymentRepository()
	uow := testutil.NewMockUnitOfWork(f.loans, payments, f.txs)

	f.collector = f.users.AddUser(&domain.User{AuthSubject: "auth0|carlos", Name: "Carlos", Role: domain.RoleCollector, Active: true})
	f.other = f.users.AddUser(&domain.User{AuthSubject: "auth0|diana", Name: "Diana", Role: domain.RoleCollector, Active: true})
	f.admin = f.users.AddUser(&domain.User{AuthSubject: "auth0|admin", Name: "Admin", Role: domain.RoleAdmin, Active: true})

	calc, err := service.NewCalculator(domain.DefaultCollectionPolicy())
	require.NoError(t, err)
	lifecycle := service.NewLifecycle(calc, f.cal)
	f.provider = service.NewConfigProvider(f.configs, decimal.NewFromInt(5), "COP")

	f.loanSvc = service.NewLoanService(f.loans, payments, f.txs, f.users, uow, lifecycle, f.provider)
	f.loanSvc.SetClock(func() time.Time { return testNow })
	dashboardSvc := service.NewDashboardService(f.loans, f.txs, f.users, f.cal)
	dashboardSvc.SetClock(func() time.Time { return testNow })
	collectorSvc := service.NewCollectorService(f.users, f.loans)

	f.handlers = Handlers{
		Me:          NewMeHandler(f.provider),
		Config:      NewConfigHandler(f.provider),
		Loan:        NewLoanHandler(f.loanSvc),
		Collector:   NewCollectorHandler(collectorSvc, f.loanSvc),
		Transaction: NewTransactionHandler(f.loanSvc, f.cal),
		Dashboard:   NewDashboardHandler(dashboardSvc),
	}
	return f
}

// call runs h directly as user. params alternates path parameter names and values.
func (f *apiFixture) call(t *testing.T, h echo.HandlerFunc, user *domain.User, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserKey, user))
	}
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	require.NoError(t, h(c))
	return rec
}

func (f *apiFixture) createLoan(t *testing.T, owner *domain.User, nationalID string) *domain.Loan {
	t.Helper()
	loan, err := f.loanSvc.CreateLoan(context.Background(), owner, service.CreateLoanInput{
		Borrower:  domain.Borrower{Name: "Ana Gómez", NationalID: nationalID},
		Principal: decimal.NewFromInt(200000),
		Frequency: domain.FrequencyWeekly,
	})
	require.NoError(t, err)
	return loan
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var p ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

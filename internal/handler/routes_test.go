package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// subjectValidator treats the bearer token as the subject
type subjectValidator struct{}

func (subjectValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: token},
		CustomClaims:     &middleware.CustomClaims{},
	}, nil
}

func newRouter(t *testing.T, f *apiFixture, store *middleware.IdempotencyStore) *echo.Echo {
	t.Helper()
	e := echo.New()
	auth := middleware.NewAuthMiddlewareWithValidator(subjectValidator{}, f.users)
	RegisterRoutes(e, auth, nil, store, f.handlers)
	return e
}

func serve(e *echo.Echo, method, target, subject, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if subject != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_AdminOnly(t *testing.T) {
	f := newAPIFixture(t)
	e := newRouter(t, f, nil)
	loan := f.createLoan(t, f.collector, "1020")
	loanPath := "/api/v1/loans/" + loan.ID.String()

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPut, "/api/v1/config", `{"rate":"6","currencyCode":"COP"}`},
		{http.MethodDelete, loanPath, ""},
		{http.MethodPost, loanPath + "/assign", `{}`},
		{http.MethodGet, "/api/v1/collectors", ""},
		{http.MethodPut, "/api/v1/collectors/" + f.other.ID.String() + "/active", `{"active":false}`},
		{http.MethodGet, "/api/v1/admin/overview", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(e, tt.method, tt.path, f.collector.AuthSubject, tt.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	assert.NotNil(t, f.loans.Stored(loan.ID))
	assert.True(t, f.other.Active)
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	f := newAPIFixture(t)
	e := newRouter(t, f, nil)

	for _, path := range []string{"/api/v1/me", "/api/v1/loans", "/api/v1/config", "/api/v1/transactions"} {
		rec := serve(e, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRoutes_CollectorFlow(t *testing.T) {
	f := newAPIFixture(t)
	e := newRouter(t, f, nil)
	subject := f.collector.AuthSubject

	rec := serve(e, http.MethodPost, "/api/v1/loans", subject,
		`{"borrowerName":"Ana","nationalId":"1020","principal":"100000","frequency":"diario"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(e, http.MethodGet, "/api/v1/loans", subject, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"nationalId":"1020"`)

	rec = serve(e, http.MethodGet, "/api/v1/loans/due-today", subject, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodGet, "/api/v1/dashboard/summary", subject, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_IdempotentPayment(t *testing.T) {
	f := newAPIFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	e := newRouter(t, f, middleware.NewIdempotencyStore(client, time.Minute))

	loan := f.createLoan(t, f.collector, "1020")
	path := "/api/v1/loans/" + loan.ID.String() + "/payments"
	body := `{"installments":1,"expectedVersion":1}`

	first := serve(e, http.MethodPost, path, f.collector.AuthSubject, body, middleware.HeaderIdempotencyKey, "visit-42")
	second := serve(e, http.MethodPost, path, f.collector.AuthSubject, body, middleware.HeaderIdempotencyKey, "visit-42")

	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.HeaderIdempotentReplayed))
	assert.Equal(t, int32(1), f.loans.Stored(loan.ID).PaidInstallments)

	// without a key the retry hits the version check
	third := serve(e, http.MethodPost, path, f.collector.AuthSubject, body)
	assert.Equal(t, http.StatusConflict, third.Code)
}

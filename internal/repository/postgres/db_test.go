package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateError(nil, domain.ErrLoanNotFound))
	})

	t.Run("no rows maps to the given not-found error", func(t *testing.T) {
		err := translateError(pgx.ErrNoRows, domain.ErrLoanNotFound)
		assert.ErrorIs(t, err, domain.ErrLoanNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("wrapped no rows is detected", func(t *testing.T) {
		err := translateError(fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrUserNotFound)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("open loan index violation", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "loans_open_national_id_idx"}
		err := translateError(pgErr, nil)
		assert.ErrorIs(t, err, domain.ErrActiveLoanExists)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("other unique violation is a conflict", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_auth_subject_key", Message: "duplicate key"}
		assert.ErrorIs(t, translateError(pgErr, nil), domain.ErrConflict)
	})

	t.Run("serialization failure and deadlock are conflicts", func(t *testing.T) {
		assert.ErrorIs(t, translateError(&pgconn.PgError{Code: "40001"}, nil), domain.ErrConflict)
		assert.ErrorIs(t, translateError(&pgconn.PgError{Code: "40P01"}, nil), domain.ErrConflict)
	})

	t.Run("other pg errors pass through", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23514"}
		err := translateError(pgErr, nil)
		assert.Same(t, pgErr, err)
	})

	t.Run("context errors pass through", func(t *testing.T) {
		assert.ErrorIs(t, translateError(context.Canceled, nil), context.Canceled)
		assert.False(t, errors.Is(translateError(context.DeadlineExceeded, nil), domain.ErrStoreUnavailable))
	})
}

func TestDecimalNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "52500", "4375.01", "6.5", "-12.25"} {
		d := decimal.RequireFromString(s)
		n, err := decimalToPgNumeric(d)
		require.NoError(t, err)
		assert.True(t, d.Equal(pgNumericToDecimal(n)), s)
	}
}

func TestPgNumericToDecimal_Invalid(t *testing.T) {
	n, err := decimalToPgNumeric(decimal.NewFromInt(10))
	require.NoError(t, err)
	n.Valid = false
	assert.True(t, pgNumericToDecimal(n).IsZero())
}

func TestDateConversion(t *testing.T) {
	d := civil.Date{Year: 2025, Month: 10, Day: 14}
	assert.Equal(t, d, pgDateToCivil(civilToPgDate(d)))

	assert.Nil(t, pgDateToCivilPtr(civilPtrToPgDate(nil)))
	got := pgDateToCivilPtr(civilPtrToPgDate(&d))
	require.NotNil(t, got)
	assert.Equal(t, d, *got)
}

func TestUUIDConversion(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, pgToUUID(uuidToPg(id)))
	assert.Nil(t, pgToUUIDPtr(uuidPtrToPg(nil)))
	got := pgToUUIDPtr(uuidPtrToPg(&id))
	require.NotNil(t, got)
	assert.Equal(t, id, *got)
}

func TestFilterClause(t *testing.T) {
	assert.Equal(t, " AND state <> 'completado'", filterClause(domain.LoanFilterOpen))
	assert.Equal(t, " AND state = 'completado'", filterClause(domain.LoanFilterCompleted))
	assert.Equal(t, "", filterClause(domain.LoanFilterAll))
	assert.Equal(t, "", filterClause(""))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "001_init.sql", entries[0].Name())

	data, err := migrationsFS.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), openLoanNationalIDIndex)

	notify, err := migrationsFS.ReadFile("migrations/002_interest_config_notify.sql")
	require.NoError(t, err)
	assert.Contains(t, string(notify), InterestConfigChannel)
}

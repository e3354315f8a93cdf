package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

// InterestConfigRepository implements domain.InterestConfigRepository using
// PostgreSQL. Rows are never updated; every change appends one.
type InterestConfigRepository struct {
	db DBTX
}

// NewInterestConfigRepository creates a new InterestConfigRepository
func NewInterestConfigRepository(db DBTX) *InterestConfigRepository {
	return &InterestConfigRepository{db: db}
}

const interestConfigColumns = `id, rate, currency_code, updated_at, updated_by`

// GetCurrent returns the most recently updated row
func (r *InterestConfigRepository) GetCurrent(ctx context.Context) (*domain.InterestConfig, error) {
	row := r.db.QueryRow(ctx, `SELECT `+interestConfigColumns+` FROM interest_config
		ORDER BY updated_at DESC, id DESC
		LIMIT 1`)
	cfg, err := scanInterestConfig(row)
	if err != nil {
		return nil, translateError(err, domain.ErrConfigNotFound)
	}
	return cfg, nil
}

// Create appends a configuration row
func (r *InterestConfigRepository) Create(ctx context.Context, cfg *domain.InterestConfig) (*domain.InterestConfig, error) {
	rate, err := decimalToPgNumeric(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate: %w", err)
	}
	row := r.db.QueryRow(ctx, `INSERT INTO interest_config (rate, currency_code, updated_by)
		VALUES ($1, $2, $3)
		RETURNING `+interestConfigColumns,
		rate, cfg.CurrencyCode, uuidPtrToPg(cfg.UpdatedBy))
	created, err := scanInterestConfig(row)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return created, nil
}

func scanInterestConfig(row pgx.Row) (*domain.InterestConfig, error) {
	var (
		id, updatedBy pgtype.UUID
		rate          pgtype.Numeric
		updatedAt     pgtype.Timestamptz
		cfg           domain.InterestConfig
	)
	if err := row.Scan(&id, &rate, &cfg.CurrencyCode, &updatedAt, &updatedBy); err != nil {
		return nil, err
	}
	cfg.ID = pgToUUID(id)
	cfg.Rate = pgNumericToDecimal(rate)
	cfg.UpdatedAt = updatedAt.Time
	cfg.UpdatedBy = pgToUUIDPtr(updatedBy)
	return &cfg, nil
}

package domain

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

var maxInterestRate = decimal.NewFromInt(100)

// InterestConfig is the admin-controlled rate and currency. Rows are appended on
// every change; the most recently updated row is authoritative.
type InterestConfig struct {
	ID           uuid.UUID       `json:"id"`
	Rate         decimal.Decimal `json:"rate"`
	CurrencyCode string          `json:"currencyCode"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	UpdatedBy    *uuid.UUID      `json:"updatedBy,omitempty"`
}

// Validate checks rate bounds and the currency code
func (c *InterestConfig) Validate() error {
	if c.Rate.IsNegative() || c.Rate.GreaterThan(maxInterestRate) {
		return ErrRateOutOfRange
	}
	if !currencyCodePattern.MatchString(c.CurrencyCode) {
		return ErrInvalidCurrency
	}
	return nil
}

// NormalizeCurrency upper-cases and trims a currency code
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InterestConfigRepository is the configuration store. GetCurrent returns
// ErrConfigNotFound when no row exists yet.
type InterestConfigRepository interface {
	GetCurrent(ctx context.Context) (*InterestConfig, error)
	Create(ctx context.Context, cfg *InterestConfig) (*InterestConfig, error)
}

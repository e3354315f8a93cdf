package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prestadiario/prestadiario-backend/internal/calendar"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/prestadiario")
	t.Setenv("AUTH0_DOMAIN", "prestadiario.us.auth0.com")
	t.Setenv("AUTH0_AUDIENCE", "https://api.prestadiario.app")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())

	cc := cfg.Collection
	assert.Equal(t, domain.DefaultCollectionPolicy(), cc.Policy)
	assert.Equal(t, "America/Bogota", cc.Location.String())
	assert.Equal(t, calendar.UnknownYearNone, cc.UnknownYearPolicy)
	assert.Equal(t, "0 5 * * *", cc.SweepSchedule)
	assert.Equal(t, "5", cc.DefaultInterestRate.String())
	assert.Equal(t, "COP", cc.DefaultCurrency)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "https://prestadiario.app, http://localhost:5173")
	t.Setenv("INSTALLMENTS_DIARIO", "20")
	t.Setenv("RENEWAL_MAX_PENDING", "0")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("HOLIDAY_UNKNOWN_YEAR", "fail")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://prestadiario.app", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, 20, cfg.Collection.Policy.Installments[domain.FrequencyDaily])
	assert.Equal(t, 4, cfg.Collection.Policy.Installments[domain.FrequencyWeekly])
	assert.Equal(t, 0, cfg.Collection.Policy.RenewalMaxPending)
	assert.Equal(t, time.UTC, cfg.Collection.Location)
	assert.Equal(t, calendar.UnknownYearFail, cfg.Collection.UnknownYearPolicy)
	assert.Equal(t, "USD", cfg.Collection.DefaultCurrency)
	assert.Equal(t, time.Minute, cfg.IdempotencyTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing database", "DATABASE_URL", ""},
		{"missing audience", "AUTH0_AUDIENCE", ""},
		{"non-numeric installments", "INSTALLMENTS_SEMANAL", "cuatro"},
		{"zero installments", "INSTALLMENTS_QUINCENAL", "0"},
		{"negative renewal threshold", "RENEWAL_MAX_PENDING", "-1"},
		{"unknown timezone", "TIMEZONE", "Mars/Olympus"},
		{"unknown holiday policy", "HOLIDAY_UNKNOWN_YEAR", "guess"},
		{"bad cron", "DELINQUENCY_SWEEP_CRON", "every morning"},
		{"rate above 100", "DEFAULT_INTEREST_RATE", "120"},
		{"rate not a number", "DEFAULT_INTEREST_RATE", "cinco"},
		{"bad currency", "DEFAULT_CURRENCY", "PESO"},
		{"zero ttl", "IDEMPOTENCY_TTL_SECONDS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			if tt.val == "" {
				// getEnv treats empty as unset
				require.NoError(t, os.Unsetenv(tt.key))
			} else {
				t.Setenv(tt.key, tt.val)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestCollectionConfig_Calendar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "festivos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("years:\n  2027: [\"01-01\", \"03-22\"]\n"), 0o600))

	cc := CollectionConfig{HolidaysFile: path, UnknownYearPolicy: calendar.UnknownYearFail, Location: time.UTC}
	cal, err := cc.Calendar()
	require.NoError(t, err)

	assert.True(t, cal.IsHoliday(civil.Date{Year: 2027, Month: time.March, Day: 22}))
	assert.True(t, cal.Covers(2025))
	assert.False(t, cal.Covers(2030))

	cc.HolidaysFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cc.Calendar()
	assert.Error(t, err)
}

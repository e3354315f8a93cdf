package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/prestadiario/prestadiario-backend/internal/calendar"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Auth0
	Auth0Domain   string
	Auth0Audience string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Redis backs Idempotency-Key replay; empty disables it
	RedisAddr      string
	IdempotencyTTL time.Duration

	RateLimitPerMinute int
	RateLimitBurst     int

	Collection CollectionConfig
}

// CollectionConfig holds the business rules of the collection engine
type CollectionConfig struct {
	Policy            domain.CollectionPolicy
	Location          *time.Location
	HolidaysFile      string
	UnknownYearPolicy calendar.UnknownYearPolicy
	SweepSchedule     string

	// Used while the interest_config table is empty
	DefaultInterestRate decimal.Decimal
	DefaultCurrency     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Env:           getEnv("ENV", "development"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
	}

	ttl, err := getEnvInt("IDEMPOTENCY_TTL_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	cfg.IdempotencyTTL = time.Duration(ttl) * time.Second

	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	if cfg.Collection, err = loadCollection(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadCollection() (CollectionConfig, error) {
	var cc CollectionConfig

	policy := domain.DefaultCollectionPolicy()
	for f, key := range map[domain.Frequency]string{
		domain.FrequencyDaily:    "INSTALLMENTS_DIARIO",
		domain.FrequencyWeekly:   "INSTALLMENTS_SEMANAL",
		domain.FrequencyBiweekly: "INSTALLMENTS_QUINCENAL",
	} {
		n, err := getEnvInt(key, policy.Installments[f])
		if err != nil {
			return cc, err
		}
		policy.Installments[f] = n
	}
	maxPending, err := getEnvInt("RENEWAL_MAX_PENDING", policy.RenewalMaxPending)
	if err != nil {
		return cc, err
	}
	policy.RenewalMaxPending = maxPending
	cc.Policy = policy

	tz := getEnv("TIMEZONE", "America/Bogota")
	if cc.Location, err = time.LoadLocation(tz); err != nil {
		return cc, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	cc.HolidaysFile = getEnv("HOLIDAYS_FILE", "")
	if cc.UnknownYearPolicy, err = calendar.ParseUnknownYearPolicy(getEnv("HOLIDAY_UNKNOWN_YEAR", "none")); err != nil {
		return cc, fmt.Errorf("HOLIDAY_UNKNOWN_YEAR: %w", err)
	}
	cc.SweepSchedule = getEnv("DELINQUENCY_SWEEP_CRON", "0 5 * * *")

	rate := getEnv("DEFAULT_INTEREST_RATE", "5.0")
	if cc.DefaultInterestRate, err = decimal.NewFromString(rate); err != nil {
		return cc, fmt.Errorf("DEFAULT_INTEREST_RATE %q is not a number", rate)
	}
	cc.DefaultCurrency = domain.NormalizeCurrency(getEnv("DEFAULT_CURRENCY", "COP"))
	return cc, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL_SECONDS must be positive")
	}
	if c.RateLimitPerMinute < 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0 and RATE_LIMIT_BURST >= 1")
	}
	if err := c.Collection.Policy.Validate(); err != nil {
		return fmt.Errorf("installment counts must be >= 1 and RENEWAL_MAX_PENDING >= 0: %w", err)
	}
	if _, err := cron.ParseStandard(c.Collection.SweepSchedule); err != nil {
		return fmt.Errorf("DELINQUENCY_SWEEP_CRON: %w", err)
	}
	defaults := domain.InterestConfig{Rate: c.Collection.DefaultInterestRate, CurrencyCode: c.Collection.DefaultCurrency}
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("DEFAULT_INTEREST_RATE / DEFAULT_CURRENCY: %w", err)
	}
	return nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Calendar builds the collection calendar: built-in holidays, overridden by
// HOLIDAYS_FILE when set.
func (c *CollectionConfig) Calendar() (*calendar.Calendar, error) {
	table := calendar.DefaultHolidays()
	if c.HolidaysFile != "" {
		var err error
		if table, err = calendar.LoadHolidayFile(c.HolidaysFile, table); err != nil {
			return nil, err
		}
	}
	return calendar.New(table, c.UnknownYearPolicy, c.Location), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

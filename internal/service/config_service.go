package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ConfigProvider holds the current interest configuration snapshot. Readers
// never touch the store; Refresh replaces the snapshot and notifies subscribers.
type ConfigProvider struct {
	repo           domain.InterestConfigRepository
	defaults       domain.InterestConfig
	eventPublisher websocket.EventPublisher

	mu      sync.RWMutex
	current domain.InterestConfig
	subs    map[int]func(domain.InterestConfig)
	nextSub int
}

// NewConfigProvider creates a ConfigProvider that serves defaults until the
// first successful Refresh finds a stored row
func NewConfigProvider(repo domain.InterestConfigRepository, defaultRate decimal.Decimal, defaultCurrency string) *ConfigProvider {
	defaults := domain.InterestConfig{
		Rate:         defaultRate,
		CurrencyCode: domain.NormalizeCurrency(defaultCurrency),
	}
	return &ConfigProvider{
		repo:     repo,
		defaults: defaults,
		current:  defaults,
		subs:     make(map[int]func(domain.InterestConfig)),
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (p *ConfigProvider) SetEventPublisher(publisher websocket.EventPublisher) {
	p.eventPublisher = publisher
}

// Current returns the latest known configuration
func (p *ConfigProvider) Current() domain.InterestConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Refresh re-reads the store. On a store failure the previous snapshot is kept
// and the error returned.
func (p *ConfigProvider) Refresh(ctx context.Context) (domain.InterestConfig, error) {
	cfg, err := p.repo.GetCurrent(ctx)
	var next domain.InterestConfig
	switch {
	case err == nil:
		next = *cfg
	case errors.Is(err, domain.ErrConfigNotFound):
		next = p.defaults
	default:
		log.Error().Err(err).Msg("Failed to refresh interest config")
		return p.Current(), err
	}

	p.mu.Lock()
	changed := next.ID != p.current.ID || !next.UpdatedAt.Equal(p.current.UpdatedAt)
	p.current = next
	var subs []func(domain.InterestConfig)
	if changed {
		subs = make([]func(domain.InterestConfig), 0, len(p.subs))
		for _, fn := range p.subs {
			subs = append(subs, fn)
		}
	}
	p.mu.Unlock()

	if changed {
		log.Info().
			Str("rate", next.Rate.String()).
			Str("currency", next.CurrencyCode).
			Msg("Interest config changed")
		for _, fn := range subs {
			fn(next)
		}
		if p.eventPublisher != nil {
			p.eventPublisher.PublishAll(websocket.ConfigUpdated(next))
		}
	}
	return next, nil
}

// Subscribe registers fn to be called after every configuration change.
// The returned func removes the subscription.
func (p *ConfigProvider) Subscribe(fn func(domain.InterestConfig)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Run refreshes on every store notification until ctx is done or the channel closes
func (p *ConfigProvider) Run(ctx context.Context, notifications <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-notifications:
			if !ok {
				return nil
			}
			// errors are already logged and the old snapshot kept
			_, _ = p.Refresh(ctx)
		}
	}
}

// UpdateConfig appends a new configuration row and refreshes the snapshot
func (p *ConfigProvider) UpdateConfig(ctx context.Context, adminID uuid.UUID, rate decimal.Decimal, currency string) (*domain.InterestConfig, error) {
	cfg := &domain.InterestConfig{
		Rate:         rate,
		CurrencyCode: domain.NormalizeCurrency(currency),
		UpdatedBy:    &adminID,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	created, err := p.repo.Create(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("admin_id", adminID.String()).Msg("Failed to save interest config")
		return nil, err
	}

	log.Info().
		Str("admin_id", adminID.String()).
		Str("rate", created.Rate.String()).
		Str("currency", created.CurrencyCode).
		Msg("Interest config updated")

	// a failed refresh is retried on the next store notification
	_, _ = p.Refresh(ctx)
	return created, nil
}

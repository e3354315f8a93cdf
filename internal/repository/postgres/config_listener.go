package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// InterestConfigChannel is the NOTIFY channel raised by the interest_config trigger
const InterestConfigChannel = "interest_config_changed"

// ConfigListener holds a dedicated connection on LISTEN and turns every
// notification into a payload-free signal.
type ConfigListener struct {
	pool          *pgxpool.Pool
	logger        zerolog.Logger
	retryInterval time.Duration
	notifications chan struct{}
}

// NewConfigListener creates a ConfigListener
func NewConfigListener(pool *pgxpool.Pool, logger zerolog.Logger) *ConfigListener {
	return &ConfigListener{
		pool:          pool,
		logger:        logger.With().Str("component", "config_listener").Logger(),
		retryInterval: 5 * time.Second,
		notifications: make(chan struct{}, 1),
	}
}

// Notifications returns the signal channel. It is closed when Listen returns.
func (l *ConfigListener) Notifications() <-chan struct{} {
	return l.notifications
}

// Listen blocks until ctx is cancelled, reconnecting after connection loss.
// A signal is also emitted after every reconnect since notifications sent
// while disconnected are lost.
func (l *ConfigListener) Listen(ctx context.Context) {
	defer close(l.notifications)

	first := true
	for {
		err := l.listenOnce(ctx, !first)
		if ctx.Err() != nil {
			l.logger.Info().Msg("Config listener stopped")
			return
		}
		first = false
		l.logger.Error().Err(err).Dur("retry_in", l.retryInterval).Msg("Config listener disconnected")

		select {
		case <-ctx.Done():
			l.logger.Info().Msg("Config listener stopped")
			return
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *ConfigListener) listenOnce(ctx context.Context, resync bool) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return translateError(err, nil)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+InterestConfigChannel); err != nil {
		return translateError(err, nil)
	}
	l.logger.Info().Str("channel", InterestConfigChannel).Msg("Listening for config changes")
	if resync {
		l.signal()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return translateError(err, nil)
		}
		l.logger.Debug().Str("channel", n.Channel).Msg("Config change notification")
		l.signal()
	}
}

// signal never blocks; one pending signal is enough to trigger a refresh
func (l *ConfigListener) signal() {
	select {
	case l.notifications <- struct{}{}:
	default:
	}
}

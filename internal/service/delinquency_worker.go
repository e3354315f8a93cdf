package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DelinquencySweeper marks overdue loans delinquent
type DelinquencySweeper interface {
	SweepDelinquencies(ctx context.Context) (*SweepResult, error)
}

// DelinquencyWorker runs the delinquency sweep on a cron schedule
type DelinquencyWorker struct {
	sweeper    DelinquencySweeper
	logger     zerolog.Logger
	schedule   cron.Schedule
	spec       string
	location   *time.Location
	runOnStart bool
	cron       *cron.Cron
	cancel     context.CancelFunc
	startup    sync.WaitGroup
	sweepMu    sync.Mutex
	mu         sync.Mutex
	running    bool
}

// DelinquencyWorkerConfig holds configuration for the delinquency worker
type DelinquencyWorkerConfig struct {
	Schedule   string         // Standard 5-field cron expression
	Location   *time.Location // Timezone the schedule is evaluated in
	RunOnStart bool           // Sweep once immediately on Start
}

// DefaultDelinquencyWorkerConfig returns sensible defaults
func DefaultDelinquencyWorkerConfig() DelinquencyWorkerConfig {
	return DelinquencyWorkerConfig{
		Schedule:   "0 5 * * *", // Every day at 05:00, before collectors go out
		Location:   time.UTC,
		RunOnStart: true,
	}
}

// NewDelinquencyWorker creates a new delinquency worker. The schedule is
// parsed up front so a bad expression fails at startup.
func NewDelinquencyWorker(sweeper DelinquencySweeper, logger zerolog.Logger, config DelinquencyWorkerConfig) (*DelinquencyWorker, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultDelinquencyWorkerConfig().Schedule
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	schedule, err := cron.ParseStandard(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid delinquency sweep schedule %q: %w", config.Schedule, err)
	}

	return &DelinquencyWorker{
		sweeper:    sweeper,
		logger:     logger.With().Str("component", "delinquency_worker").Logger(),
		schedule:   schedule,
		spec:       config.Schedule,
		location:   config.Location,
		runOnStart: config.RunOnStart,
	}, nil
}

// Start begins the scheduled sweeps. Sweeps run with a context derived from
// ctx that Stop cancels.
func (w *DelinquencyWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.cron = cron.New(cron.WithLocation(w.location))
	w.cron.Schedule(w.schedule, cron.FuncJob(func() { w.sweep(ctx) }))
	if w.runOnStart {
		w.startup.Add(1)
		go func() {
			defer w.startup.Done()
			w.sweep(ctx)
		}()
	}
	w.cron.Start()
	w.mu.Unlock()

	w.logger.Info().
		Str("schedule", w.spec).
		Str("location", w.location.String()).
		Msg("Starting delinquency worker")
}

// Stop halts the schedule, cancels in-flight sweeps and waits for them to
// return. No sweep starts after Stop returns.
func (w *DelinquencyWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	c, cancel := w.cron, w.cancel
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping delinquency worker")
	cancel()
	<-c.Stop().Done()
	w.startup.Wait()
	w.logger.Info().Msg("Delinquency worker stopped")
}

// IsRunning returns whether the worker is currently scheduled
func (w *DelinquencyWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunNow triggers a sweep synchronously
func (w *DelinquencyWorker) RunNow(ctx context.Context) (*SweepResult, error) {
	w.sweepMu.Lock()
	defer w.sweepMu.Unlock()
	return w.sweeper.SweepDelinquencies(ctx)
}

// sweep runs one pass unless another is still in progress
func (w *DelinquencyWorker) sweep(ctx context.Context) {
	if !w.sweepMu.TryLock() {
		w.logger.Warn().Msg("Previous delinquency sweep still running, skipping")
		return
	}
	defer w.sweepMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	w.logger.Debug().Msg("Starting delinquency sweep")
	startTime := time.Now()

	result, err := w.sweeper.SweepDelinquencies(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Delinquency sweep failed")
		return
	}

	w.logger.Info().
		Int("checked", result.Checked).
		Int("marked", result.Marked).
		Int("conflicts", result.Conflicts).
		Int("errors", result.Errors).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed delinquency sweep")
}

// Package scheduler wires up the cron job that periodically refreshes the
// configured competitions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Ingester stores one competition. It is satisfied by *ingest.Service.
type Ingester interface {
	IngestCompetition(ctx context.Context, code string) (int64, bool, error)
}

// Config describes what to refresh and how often.
type Config struct {
	// Spec is a robfig/cron schedule, e.g. "@every 6h" or "0 4 * * *".
	Spec         string
	Competitions []string
	// Concurrency bounds the ingests running at once within a cycle.
	Concurrency int
}

// Summary counts the results of one refresh cycle.
type Summary struct {
	Stored  int
	Skipped int
	Failed  int
}

// Scheduler wraps robfig/cron and runs refresh cycles.
type Scheduler struct {
	cron     *cron.Cron
	ingester Ingester
	cfg      Config
	logger   *slog.Logger
}

// New creates a Scheduler. Cycles never overlap: a tick that fires while the
// previous cycle is still running is skipped.
func New(ingester Ingester, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "scheduler"))
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		ingester: ingester,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start registers the job and starts the scheduler. Also runs one cycle
// immediately so the store is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.cfg.Competitions) == 0 {
		s.logger.Info("no competitions configured, scheduler idle")
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc %q: %w", s.cfg.Spec, err)
	}

	s.cron.Start()
	s.logger.Info("cron started", "spec", s.cfg.Spec, "competitions", s.cfg.Competitions)

	go s.RunOnce(ctx)
	return nil
}

// Stop halts the scheduler and waits for a running cycle to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("cron stopped")
}

// RunOnce ingests every configured competition. Individual failures are
// logged and counted; they never abort the cycle.
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	s.logger.Info("refresh cycle started", "competitions", len(s.cfg.Competitions))

	var stored, skipped, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, code := range s.cfg.Competitions {
		code := code
		g.Go(func() error {
			id, ok, err := s.ingester.IngestCompetition(gctx, code)
			switch {
			case err != nil:
				failed.Add(1)
				s.logger.Warn("refresh failed, continuing", "code", code, "err", err)
			case ok:
				stored.Add(1)
				s.logger.Debug("refresh stored", "code", code, "id", id)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Stored: int(stored.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	s.logger.Info("refresh cycle complete", "stored", sum.Stored, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "err", err)...)
}

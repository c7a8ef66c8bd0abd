package extractor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eventExtractor/internal/metrics"
)

// PassRunner runs one pass over every protocol variant.
type PassRunner interface {
	RunPass(ctx context.Context) (PassReport, error)
}

// Scheduler runs passes back to back with an adaptive pause between them.
// Passes never overlap.
type Scheduler struct {
	runner      PassRunner
	minInterval time.Duration
	maxInterval time.Duration
	logger      *zap.Logger
}

// NewScheduler builds a Scheduler. maxInterval below minInterval is raised to it.
func NewScheduler(runner PassRunner, minInterval, maxInterval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxInterval < minInterval {
		maxInterval = minInterval
	}
	return &Scheduler{
		runner:      runner,
		minInterval: minInterval,
		maxInterval: maxInterval,
		logger:      logger,
	}
}

// Run executes passes until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.minInterval
	for {
		report, err := s.runner.RunPass(ctx)
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped")
			return nil
		}

		interval = NextInterval(interval, report.Progressed(), s.minInterval, s.maxInterval)
		metrics.PollInterval.Set(interval.Seconds())
		if err != nil {
			s.logger.Warn("pass finished with failures",
				zap.String("pass_id", report.ID),
				zap.Int("failed", report.Failed),
				zap.Duration("next_pass_in", interval),
			)
		} else {
			s.logger.Debug("pass complete",
				zap.String("pass_id", report.ID),
				zap.Bool("progressed", report.Progressed()),
				zap.Duration("next_pass_in", interval),
			)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// NextInterval returns minInterval after a pass that made progress and
// otherwise doubles prev, bounded by [minInterval, maxInterval].
func NextInterval(prev time.Duration, progressed bool, minInterval, maxInterval time.Duration) time.Duration {
	if progressed {
		return minInterval
	}
	next := prev * 2
	if next < minInterval {
		next = minInterval
	}
	if next > maxInterval {
		next = maxInterval
	}
	return next
}

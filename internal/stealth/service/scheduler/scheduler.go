// Package scheduler triggers scan engines periodically.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/stealthwatch-backend/internal/clock"
	"github.com/goodnatureofminers/stealthwatch-backend/pkg/workerpool"
	"go.uber.org/zap"
)

// DefaultInterval is the pause between two rounds of scans.
const DefaultInterval = 5 * time.Minute

type Scheduler struct {
	logger   *zap.Logger
	engines  []Engine
	interval time.Duration
	workers  int
}

// New builds a Scheduler. workers bounds how many engines scan at once.
func New(engines []Engine, interval time.Duration, workers int, logger *zap.Logger) (*Scheduler, error) {
	if len(engines) == 0 {
		return nil, errors.New("scheduler requires at least one engine")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if workers <= 0 {
		workers = len(engines)
	}
	return &Scheduler{
		logger:   logger.Named("scheduler"),
		engines:  engines,
		interval: interval,
		workers:  workers,
	}, nil
}

// Run triggers every engine at once and then after each interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		zap.Int("engines", len(s.engines)),
		zap.Duration("interval", s.interval),
	)
	err := clock.Every(ctx, s.interval, func(ctx context.Context) {
		if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("scan round finished with errors", zap.Error(err))
		}
	})
	s.logger.Info("scheduler stopped")
	return err
}

// Tick runs one round: every engine is triggered once, concurrently.
func (s *Scheduler) Tick(ctx context.Context) error {
	return workerpool.Each(ctx, s.workers, s.engines, func(ctx context.Context, engine Engine) error {
		logger := s.logger.With(zap.String("owner", engine.Owner()))

		res, err := engine.Trigger(ctx)
		if err != nil {
			return fmt.Errorf("scan for %s: %w", engine.Owner(), err)
		}
		switch {
		case res.Skipped:
			logger.Debug("previous scan still running")
		case res.UpToDate:
			logger.Debug("already up to date", zap.Uint64("head", res.To))
		case len(res.Records) > 0:
			logger.Info("donations found",
				zap.Int("count", len(res.Records)),
				zap.Stringer("total_wei", res.Total),
			)
		}
		return nil
	})
}

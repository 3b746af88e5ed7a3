package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	sweepBatchSize = 100
	sweepLockKey   = "rifa:sweeper"
)

// Locker elects one sweeper when several instances run.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type StaleReservationExpirer interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// NoopLocker always grants the lock. It is used when redis is not configured.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

type Sweeper struct {
	expirer  StaleReservationExpirer
	locker   Locker
	interval time.Duration
}

func NewSweeper(expirer StaleReservationExpirer, locker Locker, interval time.Duration) *Sweeper {
	if locker == nil {
		locker = NoopLocker{}
	}

	return &Sweeper{
		expirer:  expirer,
		locker:   locker,
		interval: interval,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	zap.L().Info("reservation sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("reservation sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce releases expired reservations in batches while holding the lock, and returns
// how many were released.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	ok, err := s.locker.TryLock(ctx, sweepLockKey, s.interval)
	if err != nil {
		zap.L().Warn("sweeper lock unavailable", zap.Error(err))
		return 0
	}
	if !ok {
		return 0
	}

	total := 0
	for {
		released, err := s.expirer.ExpireStale(ctx, sweepBatchSize)
		total += released
		if err != nil {
			zap.L().Error("failed to expire reservations", zap.Error(err))
			break
		}
		if released < sweepBatchSize {
			break
		}
	}

	if total > 0 {
		zap.L().Info("expired reservations released", zap.Int("count", total))
	}

	return total
}

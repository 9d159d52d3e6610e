package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	CaptchaSweepJobName = "captcha-sweep"
	LockPurgeJobName    = "lock-purge"
)

// CaptchaSweeper drops expired captcha challenges.
type CaptchaSweeper interface {
	Sweep() int
}

// LockPurger deletes lockout rows that no longer carry failures.
type LockPurger interface {
	Purge(ctx context.Context) (int64, error)
}

func CaptchaSweepJob(interval time.Duration, sweeper CaptchaSweeper, log *zap.Logger) Job {
	return NewJob(CaptchaSweepJobName, interval, 0, func(ctx context.Context) error {
		if removed := sweeper.Sweep(); removed > 0 {
			log.Debug("captcha sweep", zap.Int("removed", removed))
		}
		return nil
	})
}

func LockPurgeJob(interval time.Duration, purger LockPurger, log *zap.Logger) Job {
	return NewJob(LockPurgeJobName, interval, 30*time.Second, func(ctx context.Context) error {
		removed, err := purger.Purge(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Info("purged cleared lockout records", zap.Int64("removed", removed))
		}
		return nil
	})
}

package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/config"
)

const (
	defaultLockThreshold = 5
	defaultLockCooldown  = 15 * time.Minute
)

// Tracker enforces the failed-attempt lockout policy.
type Tracker struct {
	repo      LockoutRepository
	threshold int
	cooldown  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewTracker(cfg *config.LockoutConfig, repo LockoutRepository, log *zap.Logger) *Tracker {
	t := &Tracker{
		repo:      repo,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		log:       log,
		now:       time.Now,
	}
	if t.threshold < 1 {
		t.threshold = defaultLockThreshold
	}
	if t.cooldown <= 0 {
		t.cooldown = defaultLockCooldown
	}
	return t
}

// Check returns a *LockedOutError when username is inside a lock window.
func (t *Tracker) Check(ctx context.Context, username string) error {
	record, err := t.repo.Get(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to read lockout state: %w", err)
	}

	now := t.now()
	if !record.Locked(now) {
		return nil
	}
	return &LockedOutError{
		Until:     *record.LockedUntil,
		Remaining: record.LockedUntil.Sub(now),
	}
}

func (t *Tracker) RecordFailure(ctx context.Context, username string) (*LockoutRecord, error) {
	record, err := t.repo.RecordFailure(ctx, username, t.now(), t.threshold, t.cooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to record login failure: %w", err)
	}

	if record.FailedCount == t.threshold {
		t.log.Warn("account locked",
			zap.String("username", username),
			zap.Int("failed_count", record.FailedCount),
			zap.Timep("locked_until", record.LockedUntil))
	}
	return record, nil
}

func (t *Tracker) Reset(ctx context.Context, username string) error {
	if err := t.repo.Reset(ctx, username, t.now()); err != nil {
		return fmt.Errorf("failed to reset lockout state: %w", err)
	}
	return nil
}

// Purge deletes rows that carry no failures.
func (t *Tracker) Purge(ctx context.Context) (int64, error) {
	return t.repo.PurgeCleared(ctx)
}

package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository interface {
	GetByUsername(ctx context.Context, username string) (*Account, error)
	Create(ctx context.Context, account *Account) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type LockoutRepository interface {
	// Get returns an empty record when the username has never failed.
	Get(ctx context.Context, username string) (*LockoutRecord, error)
	// RecordFailure atomically bumps the counter and opens a lock window once
	// the threshold is reached. The count only drops through Reset, so a
	// failure after an expired lock relocks straight away.
	RecordFailure(ctx context.Context, username string, now time.Time, threshold int, cooldown time.Duration) (*LockoutRecord, error)
	Reset(ctx context.Context, username string, now time.Time) error
	PurgeCleared(ctx context.Context) (int64, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	var account Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Update("password", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type lockoutRepository struct {
	db *gorm.DB
}

func NewLockoutRepository(db *gorm.DB) LockoutRepository {
	return &lockoutRepository{db: db}
}

func (r *lockoutRepository) Get(ctx context.Context, username string) (*LockoutRecord, error) {
	var record LockoutRecord
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LockoutRecord{Username: username}, nil
		}
		return nil, err
	}
	return &record, nil
}

// RecordFailure runs as a single INSERT ... ON CONFLICT DO UPDATE so that
// concurrent failures for one username serialize on the row.
func (r *lockoutRepository) RecordFailure(
	ctx context.Context,
	username string,
	now time.Time,
	threshold int,
	cooldown time.Duration,
) (*LockoutRecord, error) {
	lockUntil := now.Add(cooldown)

	record := LockoutRecord{
		Username:    username,
		FailedCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if threshold <= 1 {
		record.LockedUntil = &lockUntil
	}

	// Postgres evaluates every SET expression against the pre-update row.
	// Only Reset clears the count; an expired lock relocks on the next failure.
	const nextCount = "auth_locks.failed_count + 1"

	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "username"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"failed_count": gorm.Expr(nextCount),
					"locked_until": gorm.Expr(
						"CASE WHEN "+nextCount+" >= ? THEN ? ELSE auth_locks.locked_until END",
						threshold, lockUntil,
					),
					"updated_at": now,
				}),
			},
			clause.Returning{},
		).
		Create(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *lockoutRepository) Reset(ctx context.Context, username string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&LockoutRecord{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"failed_count": 0,
			"locked_until": nil,
			"updated_at":   now,
		}).Error
}

func (r *lockoutRepository) PurgeCleared(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("failed_count = 0").Delete(&LockoutRecord{})
	return result.RowsAffected, result.Error
}

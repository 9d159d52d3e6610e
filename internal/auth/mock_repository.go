package auth

import (
	"context"
	"sync"
	"time"
)

type mockAccountRepository struct {
	accounts map[string]*Account
	mu       sync.RWMutex
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{
		accounts: make(map[string]*Account),
	}
}

func (r *mockAccountRepository) GetByUsername(_ context.Context, username string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	clone := *account
	return &clone, nil
}

func (r *mockAccountRepository) Create(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Username]; exists {
		return ErrUserExists
	}

	account.ID = uint(len(r.accounts) + 1)
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	// Clone the account to prevent external modifications
	clone := *account
	r.accounts[account.Username] = &clone
	return nil
}

func (r *mockAccountRepository) UpdatePassword(_ context.Context, id uint, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.ID == id {
			a.Password = hash
			a.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrUserNotFound
}

type mockLockoutRepository struct {
	records map[string]*LockoutRecord
	mu      sync.Mutex
}

func newMockLockoutRepository() *mockLockoutRepository {
	return &mockLockoutRepository{
		records: make(map[string]*LockoutRecord),
	}
}

func (r *mockLockoutRepository) Get(_ context.Context, username string) (*LockoutRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[username]
	if !exists {
		return &LockoutRecord{Username: username}, nil
	}
	clone := *record
	return &clone, nil
}

func (r *mockLockoutRepository) RecordFailure(
	_ context.Context,
	username string,
	now time.Time,
	threshold int,
	cooldown time.Duration,
) (*LockoutRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[username]
	if !exists {
		record = &LockoutRecord{Username: username, CreatedAt: now}
		r.records[username] = record
	}

	record.FailedCount++
	if record.FailedCount >= threshold {
		lockUntil := now.Add(cooldown)
		record.LockedUntil = &lockUntil
	}
	record.UpdatedAt = now

	clone := *record
	return &clone, nil
}

func (r *mockLockoutRepository) Reset(_ context.Context, username string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record, exists := r.records[username]; exists {
		record.FailedCount = 0
		record.LockedUntil = nil
		record.UpdatedAt = now
	}
	return nil
}

func (r *mockLockoutRepository) PurgeCleared(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for username, record := range r.records {
		if record.FailedCount == 0 {
			delete(r.records, username)
			removed++
		}
	}
	return removed, nil
}

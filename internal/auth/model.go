package auth

import (
	"time"
)

// Account is a student login record.
type Account struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	School    string
	Grade     string
	Password  string `gorm:"not null"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string {
	return "students"
}

// LockoutRecord tracks consecutive login failures for one username.
type LockoutRecord struct {
	ID          uint   `gorm:"primaryKey"`
	Username    string `gorm:"uniqueIndex;not null"`
	FailedCount int    `gorm:"not null;default:0"`
	LockedUntil *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (LockoutRecord) TableName() string {
	return "auth_locks"
}

// Locked reports whether the record is inside its cooldown window at now.
func (r *LockoutRecord) Locked(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

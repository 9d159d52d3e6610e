package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCaptchaInvalid       = errors.New("invalid or expired captcha")
	ErrCredentialsInvalid   = errors.New("invalid username or password")
	ErrDecryptionFailed     = errors.New("decryption failed")
	ErrTokenInvalid         = errors.New("invalid or expired token")
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrWeakPassword         = errors.New("password does not meet strength requirements")
	ErrIncorrectOldPassword = errors.New("incorrect old password")
)

// LockedOutError is returned while an account is inside its cooldown window.
type LockedOutError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.Minutes())
}

// Minutes rounds the remaining wait up to the next whole minute.
func (e *LockedOutError) Minutes() int {
	return int(e.Remaining/time.Minute) + 1
}

// WeakPasswordError carries the first strength rule a password failed.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return e.Reason
}

func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}

package auth

import (
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	maxPasswordBytes = 72
	passwordSymbols  = "!@#$%^&*()_+-=[]{};:'\"\\|,.<>/?~`"
)

// ValidatePasswordStrength returns a *WeakPasswordError for the first rule
// the password breaks.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &WeakPasswordError{Reason: "password must be at least 8 characters long"}
	}
	if len(password) > maxPasswordBytes {
		return &WeakPasswordError{Reason: "password must be at most 72 bytes long"}
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}

	switch {
	case !upper:
		return &WeakPasswordError{Reason: "password must contain at least one uppercase letter"}
	case !lower:
		return &WeakPasswordError{Reason: "password must contain at least one lowercase letter"}
	case !digit:
		return &WeakPasswordError{Reason: "password must contain at least one digit"}
	case !symbol:
		return &WeakPasswordError{Reason: "password must contain at least one special character"}
	}
	return nil
}

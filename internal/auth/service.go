package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/config"
)

// CaptchaVerifier consumes a captcha challenge.
type CaptchaVerifier interface {
	ValidateAndConsume(id, code string) bool
}

type Service struct {
	config   *config.AuthConfig
	log      *zap.Logger
	accounts AccountRepository
	tracker  *Tracker
	captcha  CaptchaVerifier
	key      *TransportKey
	hasher   *PasswordHasher
	verifier *CredentialVerifier
	tokens   *TokenIssuer
}

type LoginInput struct {
	Username    string
	Password    string
	CaptchaID   string
	CaptchaCode string
}

type RegisterInput struct {
	Username string
	Password string
	School   string
	Grade    string
}

type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

func NewService(
	config *config.AuthConfig,
	log *zap.Logger,
	accounts AccountRepository,
	tracker *Tracker,
	captcha CaptchaVerifier,
	key *TransportKey,
	tokens *TokenIssuer,
) *Service {
	hasher := NewPasswordHasher(config.BcryptCost)
	return &Service{
		config:   config,
		log:      log,
		accounts: accounts,
		tracker:  tracker,
		captcha:  captcha,
		key:      key,
		hasher:   hasher,
		verifier: NewCredentialVerifier(key, hasher, log),
		tokens:   tokens,
	}
}

func (s *Service) PublicKeyPEM() string {
	return s.key.PublicKeyPEM()
}

// Login runs lock check, captcha, then password, stopping at the first
// failure. Captcha and password failures count towards the lockout; a
// request rejected as locked does not.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)

	if err := s.tracker.Check(ctx, username); err != nil {
		return nil, err
	}

	if !s.captcha.ValidateAndConsume(in.CaptchaID, in.CaptchaCode) {
		if err := s.recordFailure(ctx, username); err != nil {
			return nil, err
		}
		return nil, ErrCaptchaInvalid
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if account == nil {
		s.hasher.BurnTime(in.Password)
		if err := s.recordFailure(ctx, username); err != nil {
			return nil, err
		}
		return nil, ErrCredentialsInvalid
	}

	if !s.verifier.Verify(in.Password, account.Password) || !account.IsActive {
		if err := s.recordFailure(ctx, username); err != nil {
			return nil, err
		}
		return nil, ErrCredentialsInvalid
	}

	if err := s.tracker.Reset(ctx, username); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(account.Username)
	if err != nil {
		return nil, err
	}

	s.log.Info("login succeeded", zap.String("username", account.Username))
	return &Session{AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) recordFailure(ctx context.Context, username string) error {
	record, err := s.tracker.RecordFailure(ctx, username)
	if err != nil {
		s.log.Error("failed to update lockout counter",
			zap.String("username", username),
			zap.Error(err))
		return err
	}
	s.log.Info("login failed",
		zap.String("username", username),
		zap.Int("failed_count", record.FailedCount))
	return nil
}

// ChangePassword replaces the stored hash after checking the old password.
// Both passwords arrive transport-encrypted.
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	if !s.verifier.Verify(oldPassword, account.Password) {
		return ErrIncorrectOldPassword
	}

	plain, err := s.key.Decrypt(newPassword)
	if err != nil {
		return err
	}
	if err := ValidatePasswordStrength(plain); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.log.Info("password changed", zap.String("username", username))
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if !s.config.RegistrationEnabled {
		return nil, ErrRegistrationDisabled
	}

	plain, err := s.key.Decrypt(in.Password)
	if err != nil {
		return nil, err
	}
	if err := ValidatePasswordStrength(plain); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &Account{
		Username: username,
		School:   in.School,
		Grade:    in.Grade,
		Password: hash,
		IsActive: true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("account registered", zap.String("username", username))
	return account, nil
}

func (s *Service) Profile(ctx context.Context, username string) (*Account, error) {
	return s.accounts.GetByUsername(ctx, username)
}

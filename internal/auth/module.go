package auth

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elskow/assessgate/internal/captcha"
	"github.com/elskow/assessgate/internal/config"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide repositories
			fx.Annotate(
				func(db *gorm.DB) AccountRepository {
					return NewAccountRepository(db)
				},
			),
			fx.Annotate(
				func(db *gorm.DB) LockoutRepository {
					return NewLockoutRepository(db)
				},
			),
			// Transport keypair lives for the process lifetime
			func(config *config.AppConfig, log *zap.Logger) (*TransportKey, error) {
				log.Info("generating transport key", zap.Int("bits", config.Auth.RSAKeyBits))
				return NewTransportKey(config.Auth.RSAKeyBits)
			},
			func(config *config.AppConfig, log *zap.Logger) (*TokenIssuer, error) {
				return NewTokenIssuer(&config.Auth, log)
			},
			func(config *config.AppConfig, repo LockoutRepository, log *zap.Logger) *Tracker {
				return NewTracker(&config.Lockout, repo, log)
			},
			// Provide service
			fx.Annotate(
				func(
					config *config.AppConfig,
					log *zap.Logger,
					accounts AccountRepository,
					tracker *Tracker,
					issuer *captcha.Issuer,
					key *TransportKey,
					tokens *TokenIssuer,
				) *Service {
					return NewService(&config.Auth, log, accounts, tracker, issuer, key, tokens)
				},
			),
			// Provide handler
			NewHandler,
			// Provide middleware
			NewAuthMiddleware,
		),
	)
}

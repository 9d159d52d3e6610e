package captcha

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/config"
)

// NewModule returns the captcha module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				NewMemoryStore,
				fx.As(new(Store)),
			),
			func(config *config.AppConfig, store Store, log *zap.Logger) *Issuer {
				return NewIssuer(&config.Captcha, store, log)
			},
			NewHandler,
		),
	)
}

package oplog

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/auth"
)

func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewRepository,
			func(repo Repository, accounts *auth.Service, log *zap.Logger) *Service {
				return NewService(repo, accounts, log)
			},
			NewHandler,
		),
	)
}

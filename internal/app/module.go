package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/auth"
	"github.com/elskow/assessgate/internal/captcha"
	"github.com/elskow/assessgate/internal/config"
	"github.com/elskow/assessgate/internal/database"
	"github.com/elskow/assessgate/internal/jobs"
	"github.com/elskow/assessgate/internal/migration"
	"github.com/elskow/assessgate/internal/oplog"
	"github.com/elskow/assessgate/internal/server"
	"github.com/elskow/assessgate/internal/storage"
)

// Module combines all application modules. The caller supplies the
// *zap.Logger.
func Module() fx.Option {
	return fx.Options(
		// Configuration
		fx.Provide(server.LoadConfig),

		// Persistence
		database.Module(),
		migration.Module(),

		// Domain modules
		captcha.NewModule(),
		auth.NewModule(),
		storage.Module(),
		oplog.Module(),
		jobs.Module(),

		// HTTP + gRPC
		fx.Provide(server.NewRouter),
		fx.Provide(server.NewServer),

		// Start the server
		fx.Invoke(registerHooks),
	)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	srv *server.Server,
	config *config.AppConfig,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			if config.Server.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, config.Server.ShutdownTimeout)
				defer cancel()
			}
			return srv.Stop(ctx)
		},
	})
}

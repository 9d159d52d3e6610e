package storage

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/config"
)

func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			newObjectStore,
			func(config *config.AppConfig, store ObjectStore, log *zap.Logger) *Handler {
				return NewHandler(&config.Storage, store, log)
			},
		),
		fx.Invoke(registerHooks),
	)
}

func newObjectStore(config *config.AppConfig, log *zap.Logger) (ObjectStore, error) {
	if !config.Storage.Enabled {
		log.Info("object storage disabled")
		return disabledStore{}, nil
	}
	return NewS3Store(context.Background(), &config.Storage, log)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	config *config.AppConfig,
	store ObjectStore,
	log *zap.Logger,
) {
	if !config.Storage.Enabled {
		return
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.EnsureBucket(ctx); err != nil {
				// non-fatal: uploads fail until the store is reachable
				log.Error("failed to ensure bucket", zap.String("bucket", store.Bucket()), zap.Error(err))
			}
			return nil
		},
	})
}

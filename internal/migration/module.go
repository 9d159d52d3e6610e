package migration

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/config"
)

// Module provides migration-related dependencies
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig) (*Migrator, error) {
					return NewMigrator(&config.Database)
				},
			),
		),
		fx.Invoke(registerHooks),
	)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	config *config.AppConfig,
	migrator *Migrator,
	logger *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !config.Database.AutoMigrate {
				logger.Info("Automatic migrations disabled", zap.String("dir", migrator.Dir()))
				return nil
			}
			return Sync(ctx, migrator, logger)
		},
		OnStop: func(ctx context.Context) error {
			return migrator.Close()
		},
	})
}

// Sync moves the schema to the newest migration on disk, downgrading when the
// database is ahead of the running binary.
func Sync(ctx context.Context, migrator *Migrator, logger *zap.Logger) error {
	currentVersion, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	latestVersion, err := migrator.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest migration version: %w", err)
	}

	logger.Info("Database migration status",
		zap.Int64("current_version", currentVersion),
		zap.Int64("latest_version", latestVersion))

	switch {
	case currentVersion > latestVersion:
		logger.Info("Downgrading database schema",
			zap.Int64("from_version", currentVersion),
			zap.Int64("to_version", latestVersion))
		if err := migrator.DownTo(ctx, latestVersion); err != nil {
			return fmt.Errorf("failed to downgrade database: %w", err)
		}
	case currentVersion < latestVersion:
		logger.Info("Upgrading database schema",
			zap.Int64("from_version", currentVersion),
			zap.Int64("to_version", latestVersion))
		if err := migrator.Up(ctx); err != nil {
			return fmt.Errorf("failed to upgrade database: %w", err)
		}
	}

	return nil
}

package jobs

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/auth"
	"github.com/elskow/assessgate/internal/captcha"
	"github.com/elskow/assessgate/internal/config"
)

func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewScheduler),
		fx.Invoke(registerJobs),
	)
}

func registerJobs(
	lifecycle fx.Lifecycle,
	config *config.AppConfig,
	scheduler *Scheduler,
	issuer *captcha.Issuer,
	tracker *auth.Tracker,
	log *zap.Logger,
) error {
	if !config.Jobs.Enabled {
		log.Info("maintenance jobs disabled")
		return nil
	}

	if _, err := scheduler.RegisterJob(CaptchaSweepJob(config.Jobs.CaptchaSweepInterval, issuer, log)); err != nil {
		return err
	}
	if _, err := scheduler.RegisterJob(LockPurgeJob(config.Jobs.LockPurgeInterval, tracker, log)); err != nil {
		return err
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Shutdown()
		},
	})
	return nil
}

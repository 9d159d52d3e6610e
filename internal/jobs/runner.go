package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type runner struct {
	logger *zap.Logger
}

func newRunner(logger *zap.Logger) *runner {
	return &runner{logger: logger}
}

func (runner *runner) RunJobFunc(job Job) func(ctx context.Context) {
	return func(ctx context.Context) { _ = runner.Run(ctx, job) }
}

func (runner *runner) Run(ctx context.Context, job Job) error {
	log := runner.logger.With(zap.String("job", job.name))

	startedAt := time.Now()
	log.Debug("job started")

	if job.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.timeout)
		defer cancel()
	}

	err := job.Run(ctx)
	elapsed := time.Since(startedAt)
	if err != nil {
		log.Warn("job failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		log.Debug("job finished", zap.Duration("elapsed", elapsed))
	}
	return err
}

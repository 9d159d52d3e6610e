package jobs

import (
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
	runner    *runner
}

func NewScheduler(logger *zap.Logger) (*Scheduler, error) {
	if scheduler, err := gocron.NewScheduler(
		gocron.WithLogger(&gocronLoggerAdapter{logger: logger.Sugar()}),
	); err != nil {
		return nil, err
	} else {
		return &Scheduler{
			scheduler: scheduler,
			logger:    logger,
			runner:    newRunner(logger),
		}, nil
	}
}

func (s *Scheduler) RegisterJob(job Job) (gocron.Job, error) {
	return s.scheduler.NewJob(
		gocron.DurationJob(job.interval),
		gocron.NewTask(s.runner.RunJobFunc(job)),
		gocron.WithName(job.name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
}

func (s *Scheduler) Jobs() []gocron.Job {
	return s.scheduler.Jobs()
}

func (s *Scheduler) Start() {
	s.logger.Info("job scheduler starting", zap.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

func (s *Scheduler) Shutdown() error {
	s.logger.Info("job scheduler shutting down")
	return s.scheduler.Shutdown()
}

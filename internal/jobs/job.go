package jobs

import (
	"context"
	"time"
)

type Job struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	run      func(ctx context.Context) error
}

func NewJob(name string, interval, timeout time.Duration, run func(ctx context.Context) error) Job {
	return Job{
		name:     name,
		interval: interval,
		timeout:  timeout,
		run:      run,
	}
}

func (job Job) Name() string {
	return job.name
}

func (job Job) Run(ctx context.Context) error {
	return job.run(ctx)
}

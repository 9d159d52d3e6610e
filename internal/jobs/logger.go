package jobs

import "go.uber.org/zap"

// gocronLoggerAdapter satisfies gocron.Logger with a sugared zap logger.
type gocronLoggerAdapter struct {
	logger *zap.SugaredLogger
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) {
	a.logger.Debugw(msg, args...)
}

func (a *gocronLoggerAdapter) Info(msg string, args ...any) {
	a.logger.Infow(msg, args...)
}

func (a *gocronLoggerAdapter) Warn(msg string, args ...any) {
	a.logger.Warnw(msg, args...)
}

func (a *gocronLoggerAdapter) Error(msg string, args ...any) {
	a.logger.Errorw(msg, args...)
}

package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/app"
	"github.com/elskow/assessgate/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = server.EnvDevelopment
		os.Setenv("APP_ENV", env)
	}

	logger, err := server.NewLogger(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	application := fx.New(
		fx.Supply(logger),
		app.Module(),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	if err := application.Err(); err != nil {
		logger.Error("failed to assemble application", zap.Error(err))
		return 1
	}

	startCtx, cancel := context.WithTimeout(context.Background(), application.StartTimeout())
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		logger.Error("failed to start", zap.String("env", env), zap.Error(err))
		return 1
	}
	logger.Info("assessgate started", zap.String("env", env))

	sig := <-application.Wait()
	if sig.Signal != nil {
		logger.Info("received shutdown signal", zap.Stringer("signal", sig.Signal))
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), application.StopTimeout())
	defer cancelStop()
	if err := application.Stop(stopCtx); err != nil {
		logger.Error("failed to stop cleanly", zap.Error(err))
		return 1
	}
	return sig.ExitCode
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/elskow/assessgate/internal/config"
)

// Server runs the public HTTP API and, when enabled, a gRPC listener that
// only serves grpc.health.v1 for orchestration probes.
type Server struct {
	config     *config.AppConfig
	log        *zap.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	httpAddr   net.Addr
	grpcAddr   net.Addr
}

type Params struct {
	fx.In

	Config  *config.AppConfig
	Logger  *zap.Logger
	Handler http.Handler
}

func NewServer(p Params) *Server {
	s := &Server{
		config: p.Config,
		log:    p.Logger,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(p.Config.Server.Host, p.Config.Server.Port),
			Handler:      p.Handler,
			ReadTimeout:  p.Config.Server.ReadTimeout,
			WriteTimeout: p.Config.Server.WriteTimeout,
			ErrorLog:     zap.NewStdLog(p.Logger),
		},
	}

	if p.Config.GRPC.Enabled {
		s.grpcServer = grpc.NewServer(
			grpc.UnaryInterceptor(loggingInterceptor(p.Logger)),
			grpc.MaxRecvMsgSize(p.Config.GRPC.MaxReceiveMessageSize),
			grpc.MaxSendMsgSize(p.Config.GRPC.MaxSendMessageSize),
		)
		s.health = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)

		if p.Config.GRPC.EnableReflection {
			reflection.Register(s.grpcServer)
		}
	}

	return s
}

// Start binds both listeners and serves until Stop. Bind errors are
// returned synchronously.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	var grpcLis net.Listener
	if s.grpcServer != nil {
		addr := net.JoinHostPort(s.config.Server.Host, s.config.GRPC.Port)
		grpcLis, err = net.Listen("tcp", addr)
		if err != nil {
			_ = lis.Close()
			return fmt.Errorf("failed to listen for grpc: %w", err)
		}
	}

	s.httpAddr = lis.Addr()
	if grpcLis != nil {
		s.grpcAddr = grpcLis.Addr()
	}

	s.log.Info("Starting HTTP server",
		zap.String("address", lis.Addr().String()),
		zap.Object("config", serverConfigToField(s.config)),
	)
	go func() {
		if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()

	if grpcLis != nil {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		s.log.Info("Starting gRPC health server", zap.String("address", grpcLis.Addr().String()))
		go func() {
			if err := s.grpcServer.Serve(grpcLis); err != nil {
				s.log.Error("grpc server stopped", zap.Error(err))
			}
		}()
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var err error

	if s.grpcServer != nil {
		s.log.Info("shutting down gRPC server")
		s.health.Shutdown()

		done := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.grpcServer.Stop()
			err = multierr.Append(err, fmt.Errorf("grpc graceful stop: %w", ctx.Err()))
		}
	}

	s.log.Info("shutting down HTTP server")
	err = multierr.Append(err, s.httpServer.Shutdown(ctx))
	return err
}

func serverConfigToField(config *config.AppConfig) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", os.Getenv("APP_ENV"))
		enc.AddBool("grpc_enabled", config.GRPC.Enabled)
		enc.AddBool("reflection_enabled", config.GRPC.EnableReflection)
		enc.AddBool("registration_enabled", config.Auth.RegistrationEnabled)
		enc.AddBool("storage_enabled", config.Storage.Enabled)
		enc.AddInt("lockout_threshold", config.Lockout.Threshold)
		enc.AddDuration("lockout_cooldown", config.Lockout.Cooldown)
		return nil
	})
}

func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("grpc call failed", zap.String("method", info.FullMethod), zap.Error(err))
		} else {
			log.Debug("grpc call", zap.String("method", info.FullMethod))
		}
		return resp, err
	}
}

package server

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// WatcherService is the health service name reported by watch mode.
const WatcherService = "permits.Watcher"

// HealthServer exposes the gRPC health protocol for a long-running watcher.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *slog.Logger
}

// NewHealthServer listens on addr. Both the overall status and
// WatcherService start as NOT_SERVING.
func NewHealthServer(addr string, logger *slog.Logger) (*HealthServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	s := &HealthServer{grpc: grpcServer, health: hs, lis: lis, logger: logger}
	s.SetServing(false)
	return s, nil
}

// Addr is the bound listen address.
func (s *HealthServer) Addr() string { return s.lis.Addr().String() }

// Serve blocks until Stop.
func (s *HealthServer) Serve() error {
	s.logger.Info("health server listening", "addr", s.Addr())
	return s.grpc.Serve(s.lis)
}

// SetServing flips the overall and WatcherService status.
func (s *HealthServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(WatcherService, st)
}

// Stop marks everything NOT_SERVING and stops the server gracefully.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.logger.Info("health server stopped")
}

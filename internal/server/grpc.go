package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer exposes the standard gRPC health service and keeps it in
// step with ledger reachability.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	db     Pinger
	logger *slog.Logger
}

func NewHealthServer(db Pinger, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	return &HealthServer{grpc: gs, health: hs, db: db, logger: logger}
}

// Check updates the overall serving status from a database ping.
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		if err := s.db.HealthCheck(ctx, 2*time.Second, s.logger); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	return st
}

// Serve listens on lis and refreshes the status every interval until ctx ends.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s.Check(ctx)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.grpc.GracefulStop()
				return
			case <-t.C:
				s.Check(ctx)
			}
		}
	}()
	s.logger.Info("grpc health listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"digytal.com/control/internal/obs"
)

type readinessChecker interface {
	Check(ctx context.Context) error
}

// GRPCServer exposes grpc.health.v1.Health, SERVING while the readiness probe passes.
type GRPCServer struct {
	health    *health.Server
	readiness readinessChecker
	interval  time.Duration
}

// NewGRPCServer creates the health service; interval <= 0 means 10s.
func NewGRPCServer(r readinessChecker, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s := &GRPCServer{
		health:    health.NewServer(),
		readiness: r,
		interval:  interval,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register attaches the health service to srv.
func (s *GRPCServer) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.health)
}

// Refresh runs the readiness probe once and publishes the result.
func (s *GRPCServer) Refresh(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.readiness.Check(ctx); err != nil {
		obs.Logger().WithError(err).Warn("readiness_check_failed")
		obs.SetReady(false)
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	obs.SetReady(true)
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	return true
}

// Watch refreshes the status until ctx is done, then reports NOT_SERVING.
func (s *GRPCServer) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *GRPCServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(serviceName, st)
}

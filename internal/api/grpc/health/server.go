package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/logger"
)

// ServiceName is the health service reporting the control loop itself.
const ServiceName = "fanctl.ControlLoop"

// Server serves gRPC health checks for the daemon.
//
// The overall service ("") is SERVING while the process runs. ServiceName is
// SERVING only after a cycle has set at least one zone, and drops back to
// NOT_SERVING when a cycle is skipped or every zone fails.
type Server struct {
	// health holds the per-service statuses.
	health *grpchealth.Server
	// grpc is the transport.
	grpc *grpc.Server

	// mu guards last.
	mu sync.Mutex
	// last is the most recent reported status, for logging transitions only.
	last healthpb.HealthCheckResponse_ServingStatus
}

// NewServer creates a health server in the NOT_SERVING state.
func NewServer() *Server {
	h := grpchealth.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	g := grpc.NewServer()
	healthpb.RegisterHealthServer(g, h)

	return &Server{
		health: h,
		grpc:   g,
		last:   healthpb.HealthCheckResponse_NOT_SERVING,
	}
}

// Report updates the control loop status from a finished cycle.
func (s *Server) Report(ctx context.Context, status *thermal.CycleStatus) {
	next := healthpb.HealthCheckResponse_NOT_SERVING
	if status.Actuated() {
		next = healthpb.HealthCheckResponse_SERVING
	}

	s.mu.Lock()
	changed := next != s.last
	s.last = next
	s.mu.Unlock()

	s.health.SetServingStatus(ServiceName, next)

	if changed {
		logger.InfoKV(ctx, "Control loop health changed", "status", next.String())
	}
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
		close(done)
	}()

	logger.InfoKV(ctx, "Health endpoint listening", "address", lis.Addr().String())

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC health: %w", err)
	}

	<-done

	return nil
}

// ListenAndServe listens on address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return s.Serve(ctx, lis)
}

package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Health service names reported alongside the overall ("") status.
const (
	HealthDecisions = "npcbrain.decisions"
	HealthStorage   = "npcbrain.storage"
)

// HealthService serves the standard gRPC health protocol.
type HealthService struct {
	addr   string
	logger *zap.Logger
	grpc   *grpc.Server
	health *health.Server

	ready chan struct{}
	mu    sync.Mutex
	lis   net.Listener
}

// NewHealthService builds a health endpoint for addr. Every status starts as
// NOT_SERVING until Start binds the listener.
//
// Precondition: addr is a "host:port" string; port 0 picks a free port.
func NewHealthService(addr string, logger *zap.Logger) *HealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &HealthService{
		addr:   addr,
		logger: logger,
		grpc:   srv,
		health: hs,
		ready:  make(chan struct{}),
	}
}

// SetServing records the status of a named component.
func (h *HealthService) SetServing(service string, ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(service, status)
}

// Start binds the listener, marks the daemon SERVING and serves until Stop.
func (h *HealthService) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.lis = lis
	h.mu.Unlock()
	close(h.ready)

	h.SetServing("", true)
	h.logger.Info("gRPC health listening", zap.String("addr", lis.Addr().String()))
	return h.grpc.Serve(lis)
}

// Stop reports NOT_SERVING to connected watchers and stops the server.
func (h *HealthService) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}

// Addr waits until Start bound the listener and returns its address.
//
// Postcondition: Returns an error if ctx ends first.
func (h *HealthService) Addr(ctx context.Context) (string, error) {
	select {
	case <-h.ready:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lis.Addr().String(), nil
}

// ProbeService polls check on a fixed period and reports the result as the
// status of a named health component.
type ProbeService struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	check    func(ctx context.Context) error
	health   *HealthService
	logger   *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewProbeService builds a probe reporting to h under name.
//
// Precondition: interval > 0 and timeout > 0; check and h are non-nil.
func NewProbeService(name string, interval, timeout time.Duration, check func(ctx context.Context) error, h *HealthService, logger *zap.Logger) *ProbeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProbeService{
		name:     name,
		interval: interval,
		timeout:  timeout,
		check:    check,
		health:   h,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start probes immediately and then once per interval until Stop.
func (p *ProbeService) Start() error {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		p.probe()
		select {
		case <-p.done:
			return nil
		case <-t.C:
		}
	}
}

func (p *ProbeService) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	err := p.check(ctx)
	if err != nil {
		p.logger.Warn("health probe failed", zap.String("component", p.name), zap.Error(err))
	}
	p.health.SetServing(p.name, err == nil)
}

// Stop ends Start. It is safe to call more than once.
func (p *ProbeService) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

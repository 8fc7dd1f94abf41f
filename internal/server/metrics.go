package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// shutdownGrace bounds how long Stop waits for in-flight scrapes.
const shutdownGrace = 5 * time.Second

// MetricsService serves a scrape handler at /metrics.
type MetricsService struct {
	addr   string
	srv    *http.Server
	logger *zap.Logger

	ready chan struct{}
	mu    sync.Mutex
	lis   net.Listener
}

// NewMetricsService builds a scrape endpoint for addr serving h.
//
// Precondition: addr is a "host:port" string; port 0 picks a free port.
func NewMetricsService(addr string, h http.Handler, logger *zap.Logger) *MetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", h)
	return &MetricsService{
		addr:   addr,
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Start binds the listener and serves until Stop.
func (m *MetricsService) Start() error {
	lis, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", m.addr, err)
	}
	m.mu.Lock()
	m.lis = lis
	m.mu.Unlock()
	close(m.ready)

	m.logger.Info("metrics listening", zap.String("addr", lis.Addr().String()))
	if err := m.srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight scrapes and closes the listener.
func (m *MetricsService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Warn("metrics shutdown", zap.Error(err))
	}
}

// Addr waits until Start bound the listener and returns its address.
func (m *MetricsService) Addr(ctx context.Context) (string, error) {
	select {
	case <-m.ready:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lis.Addr().String(), nil
}

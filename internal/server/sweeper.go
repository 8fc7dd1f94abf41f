package server

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper is implemented by caches that can drop stale entries on demand.
type Sweeper interface {
	Sweep() int
}

// SweeperService calls Sweep on a fixed period so idle caches shrink even
// when no writes trigger eviction.
type SweeperService struct {
	target   Sweeper
	interval time.Duration
	logger   *zap.Logger
	tick     func(time.Duration) (<-chan time.Time, func())

	stopOnce sync.Once
	done     chan struct{}
}

// NewSweeperService builds a sweeper for target.
//
// Precondition: target is non-nil and interval > 0.
func NewSweeperService(target Sweeper, interval time.Duration, logger *zap.Logger) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweeperService{
		target:   target,
		interval: interval,
		logger:   logger,
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		done: make(chan struct{}),
	}
}

// Start sweeps once per interval until Stop.
func (s *SweeperService) Start() error {
	c, stop := s.tick(s.interval)
	defer stop()
	for {
		select {
		case <-s.done:
			return nil
		case <-c:
			if n := s.target.Sweep(); n > 0 {
				s.logger.Debug("swept stale cache entries", zap.Int("removed", n))
			}
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (s *SweeperService) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

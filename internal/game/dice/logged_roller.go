package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger so every roll lands in the debug log.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src must be non-nil; a nil logger disables logging.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Roll draws one value in [0, 1) and logs it at debug level. Its signature
// matches the roll functions taken by npc.NewManager and orchestrator.Options.
func (r *Roller) Roll() float64 {
	v := r.src.Float64()
	r.logger.Debug("roll", zap.Float64("value", v))
	return v
}

// NewRoller picks the source for a configured seed: zero means
// cryptographically random rolls, any other value a reproducible stream.
func NewRoller(seed uint64, logger *zap.Logger) *Roller {
	if seed == 0 {
		return NewLoggedRoller(NewCryptoSource(), logger)
	}
	return NewLoggedRoller(NewSeededSource(seed), logger)
}

package actor

import "sync"

// Reputation is a standing in [-1, 1] that a trader holds toward a customer.
// It is safe for concurrent use.
type Reputation struct {
	mu    sync.RWMutex
	value float64
}

// NewReputation returns a Reputation with the given initial value, clamped.
func NewReputation(v float64) *Reputation {
	return &Reputation{value: clampUnit(v)}
}

// Value returns the current standing. A nil Reputation is neutral.
func (r *Reputation) Value() float64 {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Adjust adds delta and clamps the result to [-1, 1].
//
// Postcondition: -1 <= Value() <= 1.
func (r *Reputation) Adjust(delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = clampUnit(r.value + delta)
}

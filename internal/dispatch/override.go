package dispatch

import (
	"sync"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// ManualOverride wraps a policy with an operator-forced source. While an
// override is set it wins; clearing it returns control to the inner policy.
// Safe for concurrent use: the API layer sets it, the tick loop reads it.
type ManualOverride struct {
	inner Policy

	mu     sync.Mutex
	active bool
	forced model.DispatchSource
}

func NewManualOverride(inner Policy) *ManualOverride {
	return &ManualOverride{inner: inner}
}

func (m *ManualOverride) Name() string { return m.inner.Name() + "+override" }

// Force pins the dispatch source until Clear is called.
func (m *ManualOverride) Force(src model.DispatchSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
	m.forced = src
}

// Clear removes the override.
func (m *ManualOverride) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

// Overridden reports whether an operator override is active.
func (m *ManualOverride) Overridden() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *ManualOverride) Decide(ctx Context) Decision {
	// Keep the inner policy's hysteresis state warm even while overridden.
	inner := m.inner.Decide(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return inner
	}
	switch m.forced {
	case model.SourceSolar:
		return Decision{Source: model.SourceSolar, SolarFraction: 1.0}
	case model.SourceBlend:
		return Decision{Source: model.SourceBlend, SolarFraction: 0.5}
	default:
		return Decision{Source: model.SourceGrid, SolarFraction: 0}
	}
}

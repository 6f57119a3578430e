package config

import "sync"

// Handle is a shared, mutable configuration reference. Reads take a shared
// lock so concurrent components can snapshot without blocking each other;
// updates take the exclusive lock. Components must call Snapshot per
// operation rather than caching values across the handle's lifetime.
type Handle struct {
	mu  sync.RWMutex
	cfg Config
}

// NewHandle wraps a validated Config in a shared handle.
func NewHandle(cfg Config) *Handle {
	return &Handle{cfg: cfg}
}

// Snapshot returns a copy of the current configuration.
func (h *Handle) Snapshot() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Update replaces the configuration under the exclusive lock.
func (h *Handle) Update(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.cfg)
}

// control/hotreload.go
// Manages reload hooks for config changes.
// Hooks run synchronously on the goroutine that accepted the change.

package control

import (
	"sync"
)

// ReloadHooks is an ordered set of config listeners.
type ReloadHooks struct {
	mu    sync.RWMutex
	hooks []func(*Config)
}

// NewReloadHooks creates an empty hook set.
func NewReloadHooks() *ReloadHooks {
	return &ReloadHooks{}
}

// Register adds a new component reload listener.
func (rh *ReloadHooks) Register(fn func(*Config)) {
	rh.mu.Lock()
	rh.hooks = append(rh.hooks, fn)
	rh.mu.Unlock()
}

// TriggerSync invokes all hooks in registration order.
func (rh *ReloadHooks) TriggerSync(cfg *Config) {
	for _, fn := range rh.snapshot() {
		fn(cfg)
	}
}

func (rh *ReloadHooks) snapshot() []func(*Config) {
	rh.mu.RLock()
	defer rh.mu.RUnlock()
	return append(([]func(*Config))(nil), rh.hooks...)
}

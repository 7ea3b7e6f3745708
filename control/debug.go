// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registry for runtime inspection of rings and platform.

package control

import (
	"sync"

	"github.com/momentics/hioload-ring/api"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// RegisterRing adds "<name>.state", "<name>.len" and "<name>.cap" probes.
// r must be safe to call from the probing goroutine.
func (dp *DebugProbes) RegisterRing(name string, r api.SlotRing) {
	dp.RegisterProbe(name+".state", func() any { return r.State().String() })
	dp.RegisterProbe(name+".len", func() any { return r.Len() })
	dp.RegisterProbe(name+".cap", func() any { return r.Cap() })
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

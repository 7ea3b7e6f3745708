// File: core/concurrency/locked_ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LockedRing serializes every call into a ring.Handle behind one mutex,
// so producers and consumers on different goroutines may share it.
// Statuses, lengths and contract violations are reported to an Observer
// and a zap logger; the engine underneath stays silent.

package concurrency

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/momentics/hioload-ring/api"
	"github.com/momentics/hioload-ring/core/ring"
)

// Ensure compile-time interface compliance.
var _ api.SlotRing = (*LockedRing)(nil)

// Op names a ring operation for observers.
type Op string

const (
	OpPush  Op = "push"
	OpPop   Op = "pop"
	OpPeek  Op = "peek"
	OpClear Op = "clear"
	OpClose Op = "close"
)

// Observer receives the outcome of every operation. It is called with the
// ring lock held and must not call back into the ring.
type Observer interface {
	Observe(ring string, op Op, st api.Status, length int)
}

type nopObserver struct{}

func (nopObserver) Observe(string, Op, api.Status, int) {}

// Option configures a LockedRing.
type Option func(*LockedRing)

// WithLogger sets the logger used for contract violations and capacity hits.
func WithLogger(l *zap.Logger) Option {
	return func(r *LockedRing) {
		if l != nil {
			r.log = l
		}
	}
}

// WithObserver installs an operation observer.
func WithObserver(o Observer) Option {
	return func(r *LockedRing) {
		if o != nil {
			r.obs = o
		}
	}
}

// LockedRing is a mutex-guarded ring.Handle.
type LockedRing struct {
	mu   sync.Mutex
	h    ring.Handle
	name string
	log  *zap.Logger
	obs  Observer
}

// NewLockedRing initializes a handle over storage. The storage stays owned
// by the caller and must outlive the ring until Close.
func NewLockedRing(name string, elementSize int, capacity uint32, storage []byte, opts ...Option) (*LockedRing, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	r := &LockedRing{
		name: name,
		log:  zap.NewNop(),
		obs:  nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.String("ring", name))

	if st := r.h.Init(elementSize, capacity, storage); st != api.StatusOK {
		err := api.NewError(st, "ring: init "+st.String()).
			WithContext("ring", name).
			WithContext("element_size", elementSize).
			WithContext("capacity", capacity).
			WithContext("storage_len", len(storage))
		return nil, fmt.Errorf("new locked ring %q: %w", name, err)
	}
	r.log.Debug("ring initialized",
		zap.Int("element_size", elementSize),
		zap.Uint32("capacity", capacity))
	return r, nil
}

// Name returns the ring name.
func (r *LockedRing) Name() string { return r.name }

// Push copies element into the ring.
func (r *LockedRing) Push(element []byte) api.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.h.Push(element)
	r.report(OpPush, st)
	return st
}

// Pop copies the oldest element into out.
func (r *LockedRing) Pop(out []byte) api.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.h.Pop(out)
	r.report(OpPop, st)
	return st
}

// Peek copies the oldest element into out without removing it.
func (r *LockedRing) Peek(out []byte) api.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.h.Peek(out)
	r.report(OpPeek, st)
	return st
}

// State returns the occupancy status.
func (r *LockedRing) State() api.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.h.State()
}

// Clear drops all elements and zeroes storage.
func (r *LockedRing) Clear() api.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.h.Clear()
	r.report(OpClear, st)
	return st
}

// Len returns the element count.
func (r *LockedRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.h.Len()
}

// Cap returns the slot count, 0 after Close.
func (r *LockedRing) Cap() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.h.Cap()
}

// ElementSize returns the slot width, 0 after Close.
func (r *LockedRing) ElementSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.h.ElementSize()
}

// Do runs fn with the lock held, for compound operations that must observe
// a consistent ring. fn must not retain h.
func (r *LockedRing) Do(fn func(h *ring.Handle)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.h)
}

// Close destroys the handle. A second Close returns api.ErrNotInitialized.
func (r *LockedRing) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.h.Destroy()
	r.report(OpClose, st)
	if err := st.Err(); err != nil {
		return fmt.Errorf("close ring %q: %w", r.name, err)
	}
	return nil
}

func (r *LockedRing) report(op Op, st api.Status) {
	r.obs.Observe(r.name, op, st, r.h.Len())
	switch {
	case st == api.StatusOK:
	case st.Retryable():
		r.log.Debug("ring capacity condition",
			zap.String("op", string(op)),
			zap.Stringer("status", st))
	default:
		r.log.Warn("ring contract violation",
			zap.String("op", string(op)),
			zap.Stringer("status", st))
	}
}

// File: core/ring/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ring

import (
	"math"

	"github.com/momentics/hioload-ring/api"
)

// MinCapacity is the smallest accepted slot count.
const MinCapacity = 2

type lifecycle uint8

const (
	uninitialized lifecycle = iota
	initialized
)

// Ensure compile-time interface compliance.
var _ api.SlotRing = (*Handle)(nil)

// Handle describes one ring instance. The zero value is uninitialized.
type Handle struct {
	storage     []byte // borrowed, exactly capacity*elementSize long
	capacity    uint32
	elementSize int
	head        uint32 // next write slot
	tail        uint32 // next read slot
	full        bool
	empty       bool
	state       lifecycle
}

// Init binds the handle to storage. Only storage[:capacity*elementSize] is
// ever read or written; the bytes are left as they are.
func (h *Handle) Init(elementSize int, capacity uint32, storage []byte) api.Status {
	if h == nil || storage == nil {
		return api.StatusInvalidParams
	}
	if h.state == initialized {
		return api.StatusAlreadyInitialized
	}
	if elementSize <= 0 || capacity < MinCapacity {
		return api.StatusInvalidParams
	}
	if uint64(capacity) > uint64(math.MaxInt)/uint64(elementSize) {
		return api.StatusInvalidParams
	}
	size := int(capacity) * elementSize
	if len(storage) < size {
		return api.StatusInvalidParams
	}

	*h = Handle{
		storage:     storage[:size:size],
		capacity:    capacity,
		elementSize: elementSize,
		empty:       true,
		state:       initialized,
	}
	return api.StatusOK
}

// Destroy returns the handle to the uninitialized state. The storage bytes
// are neither cleared nor released; they belong to the caller.
func (h *Handle) Destroy() api.Status {
	if h == nil {
		return api.StatusInvalidParams
	}
	if h.state != initialized {
		return api.StatusNotInitialized
	}
	*h = Handle{}
	return api.StatusOK
}

// Push copies element[:ElementSize()] into the head slot.
func (h *Handle) Push(element []byte) api.Status {
	if h == nil || element == nil {
		return api.StatusInvalidParams
	}
	if h.state != initialized {
		return api.StatusNotInitialized
	}
	if len(element) < h.elementSize {
		return api.StatusInvalidParams
	}
	if h.full {
		return api.StatusFull
	}

	copy(h.slot(h.head), element)
	h.head = h.next(h.head)
	if h.head == h.tail {
		h.full = true
	}
	h.empty = false
	return api.StatusOK
}

// Pop copies the tail slot into out[:ElementSize()] and releases it.
// On StatusEmpty out is not written.
func (h *Handle) Pop(out []byte) api.Status {
	if st := h.Peek(out); st != api.StatusOK {
		return st
	}
	h.tail = h.next(h.tail)
	if h.tail == h.head {
		h.empty = true
	}
	h.full = false
	return api.StatusOK
}

// Peek copies the tail slot into out without releasing it.
func (h *Handle) Peek(out []byte) api.Status {
	if h == nil || out == nil {
		return api.StatusInvalidParams
	}
	if h.state != initialized {
		return api.StatusNotInitialized
	}
	if len(out) < h.elementSize {
		return api.StatusInvalidParams
	}
	if h.empty {
		return api.StatusEmpty
	}
	copy(out, h.slot(h.tail))
	return api.StatusOK
}

// State reports StatusEmpty, StatusFull, or StatusOK when partially occupied.
func (h *Handle) State() api.Status {
	if h == nil {
		return api.StatusInvalidParams
	}
	if h.state != initialized {
		return api.StatusNotInitialized
	}
	switch {
	case h.empty:
		return api.StatusEmpty
	case h.full:
		return api.StatusFull
	}
	return api.StatusOK
}

// Clear zeroes the storage region and resets both indices.
func (h *Handle) Clear() api.Status {
	if h == nil {
		return api.StatusInvalidParams
	}
	if h.state != initialized {
		return api.StatusNotInitialized
	}
	clear(h.storage)
	h.head, h.tail = 0, 0
	h.full = false
	h.empty = true
	return api.StatusOK
}

// Len returns the number of stored elements, 0 when uninitialized.
func (h *Handle) Len() int {
	if h == nil || h.state != initialized || h.empty {
		return 0
	}
	if h.full {
		return int(h.capacity)
	}
	return int((uint64(h.head) + uint64(h.capacity) - uint64(h.tail)) % uint64(h.capacity))
}

// Cap returns the slot count, 0 when uninitialized.
func (h *Handle) Cap() int {
	if h == nil {
		return 0
	}
	return int(h.capacity)
}

// ElementSize returns the slot width in bytes, 0 when uninitialized.
func (h *Handle) ElementSize() int {
	if h == nil {
		return 0
	}
	return h.elementSize
}

// Initialized reports whether Init succeeded and Destroy has not run since.
func (h *Handle) Initialized() bool {
	return h != nil && h.state == initialized
}

func (h *Handle) slot(i uint32) []byte {
	off := int(i) * h.elementSize
	return h.storage[off : off+h.elementSize]
}

func (h *Handle) next(i uint32) uint32 {
	return (i + 1) % h.capacity
}

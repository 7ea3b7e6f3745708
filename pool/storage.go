// File: pool/storage.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral allocators for ring backing storage. A ring never owns its
// storage; callers obtain a region here, hand it to the ring, and free it only
// after the ring is destroyed. Concrete mmap allocators are selected through
// platform-specific files.

package pool

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Storage kinds accepted by NewAllocator.
const (
	KindHeap = "heap"
	KindMmap = "mmap"
)

var (
	// ErrUnsupportedStorage indicates the storage kind is unknown or unavailable here.
	ErrUnsupportedStorage = errors.New("storage kind not supported")
	// ErrInvalidSize indicates a non-positive or overflowing region size.
	ErrInvalidSize = errors.New("invalid storage size")
	// ErrForeignRegion indicates Free was given a region this allocator did not hand out.
	ErrForeignRegion = errors.New("region not owned by allocator")
)

// StorageAllocator hands out zeroed contiguous byte regions.
type StorageAllocator interface {
	Alloc(size int) ([]byte, error)
	Free(region []byte) error
	Kind() string
	Stats() StorageStats
}

// StorageStats aggregates allocation accounting.
type StorageStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUseBytes int64
}

// RegionSize returns capacity*elementSize, rejecting overflow.
func RegionSize(elementSize int, capacity uint32) (int, error) {
	if elementSize <= 0 || capacity == 0 {
		return 0, fmt.Errorf("%w: element size %d, capacity %d", ErrInvalidSize, elementSize, capacity)
	}
	if uint64(capacity) > uint64(math.MaxInt)/uint64(elementSize) {
		return 0, fmt.Errorf("%w: %d x %d overflows", ErrInvalidSize, capacity, elementSize)
	}
	return int(capacity) * elementSize, nil
}

// NewAllocator returns the allocator for kind ("heap" or "mmap").
func NewAllocator(kind string) (StorageAllocator, error) {
	switch kind {
	case KindHeap, "":
		return &HeapAllocator{}, nil
	case KindMmap:
		return newMmapAllocator()
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedStorage, kind)
}

// counters is shared accounting for allocators.
type counters struct {
	totalAlloc atomic.Int64
	totalFree  atomic.Int64
	inUse      atomic.Int64
}

func (c *counters) alloc(n int) {
	c.totalAlloc.Add(1)
	c.inUse.Add(int64(n))
}

func (c *counters) free(n int) {
	c.totalFree.Add(1)
	c.inUse.Add(-int64(n))
}

func (c *counters) stats() StorageStats {
	return StorageStats{
		TotalAlloc: c.totalAlloc.Load(),
		TotalFree:  c.totalFree.Load(),
		InUseBytes: c.inUse.Load(),
	}
}

// HeapAllocator allocates regions on the Go heap; Free only updates accounting.
type HeapAllocator struct {
	c counters
}

// Alloc returns a zeroed region of size bytes.
func (a *HeapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	a.c.alloc(size)
	return make([]byte, size), nil
}

// Free records the release; the garbage collector reclaims the memory.
func (a *HeapAllocator) Free(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	a.c.free(len(region))
	return nil
}

// Kind returns KindHeap.
func (a *HeapAllocator) Kind() string { return KindHeap }

// Stats returns allocation counters.
func (a *HeapAllocator) Stats() StorageStats { return a.c.stats() }

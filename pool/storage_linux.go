//go:build linux
// +build linux

// File: pool/storage_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific allocator backed by anonymous private mappings, keeping ring
// storage off the Go heap and page aligned.

package pool

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapAllocator maps one anonymous region per Alloc.
type mmapAllocator struct {
	mu   sync.Mutex
	live map[uintptr]int
	c    counters
}

func newMmapAllocator() (StorageAllocator, error) {
	return &mmapAllocator{live: make(map[uintptr]int)}, nil
}

func (m *mmapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	m.mu.Lock()
	m.live[regionKey(region)] = size
	m.mu.Unlock()
	m.c.alloc(size)
	return region, nil
}

func (m *mmapAllocator) Free(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	key := regionKey(region)
	m.mu.Lock()
	size, ok := m.live[key]
	if ok {
		delete(m.live, key)
	}
	m.mu.Unlock()
	if !ok {
		return ErrForeignRegion
	}
	// Munmap needs the slice exactly as returned by Mmap.
	if err := unix.Munmap(region[:size:size]); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	m.c.free(size)
	return nil
}

func (m *mmapAllocator) Kind() string { return KindMmap }

func (m *mmapAllocator) Stats() StorageStats { return m.c.stats() }

func regionKey(region []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(region)))
}

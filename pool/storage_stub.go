//go:build !linux
// +build !linux

// File: pool/storage_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub mmap allocator for platforms without anonymous mapping support here.

package pool

import "fmt"

func newMmapAllocator() (StorageAllocator, error) {
	return nil, fmt.Errorf("%w: %q on this platform", ErrUnsupportedStorage, KindMmap)
}

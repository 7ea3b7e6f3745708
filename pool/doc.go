// Package pool
// Author: momentics <momentics@gmail.com>
//
// Backing storage for rings. Regions come from the Go heap or, on Linux, from
// anonymous private mappings outside the heap. Rings borrow these regions and
// never free them; the allocator that handed a region out takes it back.
// See storage.go and the platform files for implementation details.
package pool

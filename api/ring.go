// Package api
// Author: momentics <momentics@gmail.com>
//
// Fixed-slot ring buffer contract over caller-owned storage.

package api

// SlotRing is the contract shared by the ring engine and its wrappers.
// Elements are opaque byte slots of a fixed size.
type SlotRing interface {
	// Push copies one element into the ring; StatusFull if no slot is free.
	Push(element []byte) Status
	// Pop copies the oldest element into out; StatusEmpty leaves out untouched.
	Pop(out []byte) Status
	// State returns StatusEmpty, StatusFull or StatusOK (partially occupied).
	State() Status
	// Clear drops all elements and zeroes the storage region.
	Clear() Status
	// Len returns the number of stored elements.
	Len() int
	// Cap returns the slot count.
	Cap() int
	// ElementSize returns the slot width in bytes.
	ElementSize() int
}

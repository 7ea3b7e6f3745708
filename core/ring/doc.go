// Package ring
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity circular buffer of fixed-size slots over caller-owned storage.
//
// A Handle never allocates, frees or resizes its storage. It tracks full and
// empty explicitly so that head == tail is never ambiguous, which lets a ring
// of N slots hold N elements.
//
// Handle is not safe for concurrent use. Callers either serialize every call
// themselves or go through core/concurrency.LockedRing.
package ring

// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

import (
	"errors"
	"runtime"
)

// ErrNotSupported is returned where thread pinning is unavailable.
var ErrNotSupported = errors.New("affinity: not supported on this platform")

// Pin locks the calling goroutine to its OS thread and pins that thread to
// cpuID. A negative cpuID is a no-op. The returned release function is always
// non-nil and must run on the same goroutine: it restores the thread's previous
// CPU mask, then unlocks. If the mask cannot be restored the goroutine stays
// locked, so the runtime discards the thread when the goroutine exits.
func Pin(cpuID int) (release func(), err error) {
	if cpuID < 0 {
		return func() {}, nil
	}
	if cpuID >= runtime.NumCPU() {
		return func() {}, errors.New("affinity: cpu id out of range")
	}
	runtime.LockOSThread()
	restore, err := setAffinityPlatform(cpuID)
	if err != nil {
		runtime.UnlockOSThread()
		return func() {}, err
	}
	return func() {
		if restore() == nil {
			runtime.UnlockOSThread()
		}
	}, nil
}

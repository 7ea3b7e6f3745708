// File: core/ring/typed.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed views over a Handle for fixed-width values.

package ring

import (
	"encoding/binary"
	"math"

	"github.com/momentics/hioload-ring/api"
)

// Codec encodes values of T into exactly Size() bytes.
type Codec[T any] interface {
	Size() int
	Encode(dst []byte, v T)
	Decode(src []byte) T
}

type int32Codec struct{}

func (int32Codec) Size() int { return 4 }
func (int32Codec) Encode(dst []byte, v int32) { binary.LittleEndian.PutUint32(dst, uint32(v)) }
func (int32Codec) Decode(src []byte) int32 { return int32(binary.LittleEndian.Uint32(src)) }

type uint32Codec struct{}

func (uint32Codec) Size() int { return 4 }
func (uint32Codec) Encode(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func (uint32Codec) Decode(src []byte) uint32 { return binary.LittleEndian.Uint32(src) }

type int64Codec struct{}

func (int64Codec) Size() int { return 8 }
func (int64Codec) Encode(dst []byte, v int64) { binary.LittleEndian.PutUint64(dst, uint64(v)) }
func (int64Codec) Decode(src []byte) int64 { return int64(binary.LittleEndian.Uint64(src)) }

type uint64Codec struct{}

func (uint64Codec) Size() int { return 8 }
func (uint64Codec) Encode(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }
func (uint64Codec) Decode(src []byte) uint64 { return binary.LittleEndian.Uint64(src) }

type float64Codec struct{}

func (float64Codec) Size() int { return 8 }
func (float64Codec) Encode(dst []byte, v float64) {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
}
func (float64Codec) Decode(src []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(src))
}

// Little-endian codecs for the common fixed-width types.
var (
	Int32   Codec[int32]   = int32Codec{}
	Uint32  Codec[uint32]  = uint32Codec{}
	Int64   Codec[int64]   = int64Codec{}
	Uint64  Codec[uint64]  = uint64Codec{}
	Float64 Codec[float64] = float64Codec{}
)

// Typed pushes and pops values of T through a SlotRing whose element size
// matches the codec. Scratch space is reused, so a Typed shares the
// single-caller contract of the ring it wraps.
type Typed[T any] struct {
	ring    api.SlotRing
	codec   Codec[T]
	scratch []byte
}

// NewTyped wraps r. It returns nil if r is nil or the codec width differs
// from r.ElementSize().
func NewTyped[T any](r api.SlotRing, codec Codec[T]) *Typed[T] {
	if r == nil || codec == nil || codec.Size() != r.ElementSize() {
		return nil
	}
	return &Typed[T]{
		ring:    r,
		codec:   codec,
		scratch: make([]byte, codec.Size()),
	}
}

// Push encodes v and pushes it.
func (t *Typed[T]) Push(v T) api.Status {
	t.codec.Encode(t.scratch, v)
	return t.ring.Push(t.scratch)
}

// Pop removes and decodes the oldest value. The zero value is returned with
// any status other than StatusOK.
func (t *Typed[T]) Pop() (T, api.Status) {
	if st := t.ring.Pop(t.scratch); st != api.StatusOK {
		var zero T
		return zero, st
	}
	return t.codec.Decode(t.scratch), api.StatusOK
}

// State passes through to the wrapped ring.
func (t *Typed[T]) State() api.Status { return t.ring.State() }

// Len passes through to the wrapped ring.
func (t *Typed[T]) Len() int { return t.ring.Len() }

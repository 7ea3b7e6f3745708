// File: internal/demo/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Producer/consumer demonstration over a LockedRing of int32 values.
// The producer pushes 0..Total-1 one per push interval; the consumer pops one
// per pop interval until the producer is finished and the ring is drained.
// Full and Empty are routine: the producer retries (or drops) and the consumer
// simply waits for the next tick.

package demo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/momentics/hioload-ring/affinity"
	"github.com/momentics/hioload-ring/api"
	"github.com/momentics/hioload-ring/core/concurrency"
	"github.com/momentics/hioload-ring/core/ring"
)

// ErrOrderViolation indicates the consumer received values out of push order.
var ErrOrderViolation = errors.New("demo: values received out of order")

// Options configures a Driver.
type Options struct {
	Total        int
	PushInterval time.Duration
	PopInterval  time.Duration
	DropOnFull   bool
	// Affinity optionally pins the producer (index 0) and consumer (index 1)
	// threads to CPUs. Missing or negative entries leave a side unpinned.
	Affinity []int
}

// Report summarizes one run.
type Report struct {
	Pushed     int
	Dropped    int
	Popped     int
	FullHits   int
	EmptyHits  int
	Received   []int32
	FinalState api.Status
}

// Driver runs the demonstration against one ring.
type Driver struct {
	ring       *concurrency.LockedRing
	log        *zap.Logger
	total      int
	dropOnFull bool
	cpus       [2]int
	pushEvery  atomic.Int64
	popEvery   atomic.Int64
}

// NewDriver validates that r holds int32-sized slots.
func NewDriver(r *concurrency.LockedRing, opts Options, log *zap.Logger) (*Driver, error) {
	if r == nil {
		return nil, fmt.Errorf("demo: nil ring: %w", api.ErrInvalidParams)
	}
	if r.ElementSize() != ring.Int32.Size() {
		return nil, fmt.Errorf("demo: element size %d, need %d: %w",
			r.ElementSize(), ring.Int32.Size(), api.ErrInvalidParams)
	}
	if opts.Total < 0 {
		return nil, fmt.Errorf("demo: total %d: %w", opts.Total, api.ErrInvalidParams)
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Driver{
		ring:       r,
		log:        log,
		total:      opts.Total,
		dropOnFull: opts.DropOnFull,
		cpus:       [2]int{-1, -1},
	}
	copy(d.cpus[:], opts.Affinity)
	d.SetIntervals(opts.PushInterval, opts.PopInterval)
	return d, nil
}

// SetIntervals changes the pacing of a running or future Run.
func (d *Driver) SetIntervals(push, pop time.Duration) {
	d.pushEvery.Store(int64(push))
	d.popEvery.Store(int64(pop))
}

// Run blocks until every value has been produced and consumed or ctx ends.
// The returned Report is valid in both cases.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	var (
		wg       sync.WaitGroup
		done     atomic.Bool
		prod     producerResult
		received []int32
		cons     consumerResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer done.Store(true)
		prod = d.produce(ctx)
	}()
	go func() {
		defer wg.Done()
		received, cons = d.consume(ctx, &done)
	}()
	wg.Wait()

	rep := Report{
		Pushed:     prod.ledger.Length(),
		Dropped:    prod.dropped,
		Popped:     len(received),
		FullHits:   prod.fullHits,
		EmptyHits:  cons.emptyHits,
		Received:   received,
		FinalState: d.ring.State(),
	}
	if err := verify(prod.ledger, received); err != nil {
		return rep, err
	}
	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("demo interrupted: %w", err)
	}
	if prod.err != nil {
		return rep, prod.err
	}
	return rep, cons.err
}

type producerResult struct {
	ledger   *queue.Queue
	dropped  int
	fullHits int
	err      error
}

func (d *Driver) produce(ctx context.Context) producerResult {
	res := producerResult{ledger: queue.New()}
	defer d.pin("producer", d.cpus[0])()
	typed := ring.NewTyped[int32](d.ring, ring.Int32)
	for i := 0; i < d.total; {
		v := int32(i)
		switch st := typed.Push(v); st {
		case api.StatusOK:
			res.ledger.Add(v)
			d.log.Info("pushed element", zap.Int32("element", v))
			i++
		case api.StatusFull:
			res.fullHits++
			if d.dropOnFull {
				res.dropped++
				d.log.Info("buffer is full, dropping element", zap.Int32("element", v))
				i++
			} else {
				d.log.Info("buffer is full, will retry", zap.Int32("element", v))
			}
		default:
			res.err = fmt.Errorf("push %d: %w", v, st.Err())
			return res
		}
		if wait(ctx, time.Duration(d.pushEvery.Load())) != nil {
			return res
		}
	}
	return res
}

type consumerResult struct {
	emptyHits int
	err       error
}

func (d *Driver) consume(ctx context.Context, producerDone *atomic.Bool) ([]int32, consumerResult) {
	var (
		res      consumerResult
		received []int32
	)
	defer d.pin("consumer", d.cpus[1])()
	typed := ring.NewTyped[int32](d.ring, ring.Int32)
	for {
		// Read the flag before popping: if the producer had already finished,
		// an Empty result means the ring is drained for good.
		finished := producerDone.Load()
		v, st := typed.Pop()
		switch st {
		case api.StatusOK:
			received = append(received, v)
			d.log.Info("popped element", zap.Int32("element", v))
		case api.StatusEmpty:
			if finished {
				return received, res
			}
			res.emptyHits++
			d.log.Debug("buffer is empty")
		default:
			res.err = fmt.Errorf("pop: %w", st.Err())
			return received, res
		}
		if wait(ctx, time.Duration(d.popEvery.Load())) != nil {
			return received, res
		}
	}
}

// pin pins the calling goroutine's thread; failure only costs locality.
func (d *Driver) pin(role string, cpu int) func() {
	release, err := affinity.Pin(cpu)
	if err != nil {
		d.log.Warn("cpu pinning failed", zap.String("role", role), zap.Int("cpu", cpu), zap.Error(err))
	} else if cpu >= 0 {
		d.log.Debug("thread pinned", zap.String("role", role), zap.Int("cpu", cpu))
	}
	return release
}

// verify checks that received is a prefix of the pushed sequence.
func verify(ledger *queue.Queue, received []int32) error {
	for i, got := range received {
		if ledger.Length() == 0 {
			return fmt.Errorf("%w: element %d (%d) was never pushed", ErrOrderViolation, i, got)
		}
		if want := ledger.Remove().(int32); want != got {
			return fmt.Errorf("%w: element %d is %d, want %d", ErrOrderViolation, i, got, want)
		}
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

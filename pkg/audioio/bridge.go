package audioio

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned by Bridge.Pull when no frame arrives within the
// caller's interval. It signals "no audio flowing", which the segmenter
// treats differently from "no speech".
var ErrTimeout = errors.New("audioio: timed out waiting for frame")

// DefaultPullTimeout is used by Pull when the caller passes a non-positive
// timeout.
const DefaultPullTimeout = 2 * time.Second

// DefaultBridgeCapacity bounds the number of frames queued between the
// capture callback and the pipeline. At 60ms frames this is ~4s of audio.
const DefaultBridgeCapacity = 64

// Bridge hands frames from the real-time capture producer to the pipeline
// consumer. Push never blocks: when the queue is full the oldest unconsumed
// frame is dropped and the drop counter is incremented, so a slow consumer
// can never stall the capture callback and cause audible dropouts.
//
// The queue is a fixed-capacity ring guarded by a mutex that is only ever
// held for a few pointer operations, plus a one-slot wake channel to rouse
// a waiting consumer.
type Bridge struct {
	mu    sync.Mutex
	ring  []Frame
	head  int // index of oldest frame
	count int
	close bool

	wake chan struct{}

	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// NewBridge creates a Bridge with the given frame capacity.
// A capacity of 0 or less uses DefaultBridgeCapacity.
func NewBridge(capacity int) *Bridge {
	if capacity <= 0 {
		capacity = DefaultBridgeCapacity
	}
	return &Bridge{
		ring: make([]Frame, capacity),
		wake: make(chan struct{}, 1),
	}
}

// Push enqueues a frame. It never blocks and never allocates.
// On overflow the oldest queued frame is discarded.
// Pushing to a closed bridge is a no-op.
func (b *Bridge) Push(f Frame) {
	b.mu.Lock()
	if b.close {
		b.mu.Unlock()
		return
	}
	if b.count == len(b.ring) {
		// Overwrite the oldest slot.
		b.head = (b.head + 1) % len(b.ring)
		b.count--
		b.dropped.Add(1)
	}
	tail := (b.head + b.count) % len(b.ring)
	b.ring[tail] = f
	b.count++
	b.mu.Unlock()

	b.pushed.Add(1)
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Pull returns the next frame, waiting up to timeout for one to arrive.
// A non-positive timeout uses DefaultPullTimeout. Returns ErrTimeout if no
// frame arrives in time, ctx.Err() on cancellation, and io.EOF once the
// bridge is closed and drained.
func (b *Bridge) Pull(ctx context.Context, timeout time.Duration) (Frame, error) {
	if timeout <= 0 {
		timeout = DefaultPullTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mu.Lock()
		if b.count > 0 {
			f := b.ring[b.head]
			b.ring[b.head] = Frame{}
			b.head = (b.head + 1) % len(b.ring)
			b.count--
			b.mu.Unlock()
			return f, nil
		}
		closed := b.close
		b.mu.Unlock()

		if closed {
			return Frame{}, io.EOF
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-timer.C:
			return Frame{}, ErrTimeout
		case <-b.wake:
		}
	}
}

// Close marks the bridge closed. Queued frames remain pullable; once drained,
// Pull returns io.EOF. Close is idempotent.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.close = true
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued frames.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Pushed returns the total number of frames accepted.
func (b *Bridge) Pushed() uint64 {
	return b.pushed.Load()
}

// Dropped returns the total number of frames discarded due to overflow.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func testFrame(seq uint64) Frame {
	return Frame{
		Samples:    make([]int16, 160),
		SampleRate: 16000,
		Seq:        seq,
	}
}

func TestBridge_PushPull(t *testing.T) {
	b := NewBridge(8)

	b.Push(testFrame(1))
	b.Push(testFrame(2))

	ctx := context.Background()

	f, err := b.Pull(ctx, time.Second)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if f.Seq != 1 {
		t.Errorf("Expected seq 1 first, got %d", f.Seq)
	}

	f, err = b.Pull(ctx, time.Second)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if f.Seq != 2 {
		t.Errorf("Expected seq 2 second, got %d", f.Seq)
	}
}

func TestBridge_PullTimeout(t *testing.T) {
	b := NewBridge(8)

	start := time.Now()
	_, err := b.Pull(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Pull returned before timeout elapsed: %v", elapsed)
	}
}

func TestBridge_PullCancellation(t *testing.T) {
	b := NewBridge(8)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := b.Pull(ctx, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestBridge_OverflowDropsOldest(t *testing.T) {
	b := NewBridge(4)

	for seq := uint64(1); seq <= 10; seq++ {
		b.Push(testFrame(seq))
	}

	if got := b.Dropped(); got != 6 {
		t.Errorf("Expected 6 dropped frames, got %d", got)
	}
	if got := b.Len(); got != 4 {
		t.Errorf("Expected 4 queued frames, got %d", got)
	}

	// The survivors must be the newest frames, oldest first.
	ctx := context.Background()
	for want := uint64(7); want <= 10; want++ {
		f, err := b.Pull(ctx, time.Second)
		if err != nil {
			t.Fatalf("Pull failed: %v", err)
		}
		if f.Seq != want {
			t.Errorf("Expected seq %d, got %d", want, f.Seq)
		}
	}
}

func TestBridge_SustainedOverflowNeverBlocks(t *testing.T) {
	b := NewBridge(2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for seq := uint64(1); seq <= 1000; seq++ {
			b.Push(testFrame(seq))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Push blocked under sustained overflow")
	}

	if got := b.Dropped(); got != 998 {
		t.Errorf("Expected 998 dropped frames, got %d", got)
	}
}

func TestBridge_DropCounterStrictlyIncreases(t *testing.T) {
	b := NewBridge(1)

	b.Push(testFrame(1))
	last := b.Dropped()
	for seq := uint64(2); seq <= 5; seq++ {
		b.Push(testFrame(seq))
		now := b.Dropped()
		if now <= last {
			t.Fatalf("Drop counter did not increase: %d -> %d", last, now)
		}
		last = now
	}
}

func TestBridge_WakesBlockedConsumer(t *testing.T) {
	b := NewBridge(8)

	result := make(chan Frame, 1)
	go func() {
		f, err := b.Pull(context.Background(), time.Second)
		if err != nil {
			t.Errorf("Pull failed: %v", err)
			return
		}
		result <- f
	}()

	time.Sleep(10 * time.Millisecond)
	b.Push(testFrame(42))

	select {
	case f := <-result:
		if f.Seq != 42 {
			t.Errorf("Expected seq 42, got %d", f.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("Consumer was not woken by Push")
	}
}

func TestBridge_CloseDrainsThenEOF(t *testing.T) {
	b := NewBridge(8)

	b.Push(testFrame(1))
	b.Close()

	// Push after close is a no-op.
	b.Push(testFrame(2))

	ctx := context.Background()

	f, err := b.Pull(ctx, time.Second)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if f.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", f.Seq)
	}

	_, err = b.Pull(ctx, time.Second)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF after drain, got %v", err)
	}
}

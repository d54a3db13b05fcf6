package audioio

import (
	"context"
	"testing"
	"time"
)

func TestMockSource_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()

	// Start should succeed
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Starting again should be a no-op
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	// Stop should succeed
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Stopping again should be a no-op
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
}

func TestMockSource_Read(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frame, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(frame.Samples) != cfg.FrameSize() {
		t.Errorf("Expected %d samples, got %d", cfg.FrameSize(), len(frame.Samples))
	}
	if frame.SampleRate != cfg.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", cfg.SampleRate, frame.SampleRate)
	}
	if frame.Seq == 0 {
		t.Error("Expected non-zero sequence number")
	}
}

func TestMockSource_SequenceMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameDuration = 5 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var last uint64
	for i := 0; i < 5; i++ {
		frame, err := src.Read(ctx)
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if frame.Seq <= last {
			t.Errorf("Sequence not monotonic: %d after %d", frame.Seq, last)
		}
		last = frame.Seq
	}
}

func TestMockSource_SilenceByDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frame, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	for i, s := range frame.Samples {
		if s != 0 {
			t.Fatalf("Expected silence, sample %d is %d", i, s)
		}
	}
}

func TestMockSource_SineWave(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frame, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	nonZero := false
	for _, s := range frame.Samples {
		if s != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("Expected sine wave frame to contain non-zero samples")
	}
}

func TestMockSource_Utterances(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameDuration = 5 * time.Millisecond

	src := NewMockSource(cfg, nil, WithUtterances(2, 3))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// First two frames are tone, next three are silence.
	loud := func(f Frame) bool {
		for _, s := range f.Samples {
			if s > 1000 || s < -1000 {
				return true
			}
		}
		return false
	}

	pattern := make([]bool, 0, 5)
	for i := 0; i < 5; i++ {
		frame, err := src.Read(ctx)
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		pattern = append(pattern, loud(frame))
	}

	want := []bool{true, true, false, false, false}
	for i := range want {
		if pattern[i] != want[i] {
			t.Errorf("Frame %d: expected loud=%v, got %v", i, want[i], pattern[i])
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"rate 8k", func(c *Config) { c.SampleRate = 8000 }, false},
		{"rate 48k", func(c *Config) { c.SampleRate = 48000 }, false},
		{"rate 44.1k", func(c *Config) { c.SampleRate = 44100 }, true},
		{"rate zero", func(c *Config) { c.SampleRate = 0 }, true},
		{"stereo", func(c *Config) { c.Channels = 2 }, true},
		{"zero frame", func(c *Config) { c.FrameDuration = 0 }, true},
		{"huge frame", func(c *Config) { c.FrameDuration = 2 * time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_FrameSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	cfg.FrameDuration = 60 * time.Millisecond

	if got := cfg.FrameSize(); got != 960 {
		t.Errorf("Expected 960 samples per frame, got %d", got)
	}
	if got := cfg.FrameBytes(); got != 1920 {
		t.Errorf("Expected 1920 bytes per frame, got %d", got)
	}
}

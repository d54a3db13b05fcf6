// Package audioio provides microphone capture for the vinput pipeline.
//
// This package supports multiple backends:
//   - PortAudio - production capture on Linux and macOS (build tag "portaudio")
//   - Mock - CI/testing without hardware
//
// The backend is selected automatically based on platform, or can be
// explicitly specified via configuration. Captured audio is delivered as
// fixed-size mono PCM16 frames; the Bridge hands frames from the real-time
// capture callback to the pipeline consumer without ever blocking the
// producer.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio capture backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendPortAudio uses PortAudio for cross-platform capture.
	BackendPortAudio Backend = "portaudio"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// legalSampleRates are the sample rates the voice-activity detector and the
// recognizer accept.
var legalSampleRates = map[int]bool{
	8000:  true,
	16000: true,
	32000: true,
	48000: true,
}

// Config holds audio capture configuration.
type Config struct {
	// Backend specifies which capture backend to use.
	// Default: "auto" (selects best available for platform)
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the capture sample rate in Hz.
	// Legal values: 8000, 16000, 32000, 48000. Default: 16000.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels. Must be 1 (mono).
	Channels int `yaml:"channels" json:"channels"`

	// FrameDuration is the length of each captured frame.
	// Default: 60ms (960 samples at 16kHz).
	FrameDuration time.Duration `yaml:"frame_duration" json:"frame_duration"`

	// Device is the platform-specific device identifier.
	// Empty means the system default input device.
	Device string `yaml:"device" json:"device"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    16000,
		Channels:      1,
		FrameDuration: 60 * time.Millisecond,
		Device:        "",
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !legalSampleRates[c.SampleRate] {
		return fmt.Errorf("sample_rate must be 8000, 16000, 32000 or 48000, got %d", c.SampleRate)
	}
	if c.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", c.Channels)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame_duration must be positive, got %v", c.FrameDuration)
	}
	if c.FrameDuration > time.Second {
		return fmt.Errorf("frame_duration must be at most 1s, got %v", c.FrameDuration)
	}
	return nil
}

// FrameSize returns the number of samples per frame.
func (c *Config) FrameSize() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// FrameBytes returns the size of a frame in bytes (int16 samples).
func (c *Config) FrameBytes() int {
	return c.FrameSize() * c.Channels * 2
}

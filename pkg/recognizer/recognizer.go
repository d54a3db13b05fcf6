// Package recognizer turns normalized audio buffers into text.
//
// The pipeline treats recognition as an opaque external call: hand over a
// fixed-shape float buffer, get text back or an error. Backends: a
// whisper-server HTTP client, native whisper.cpp bindings (build tag
// "whispercpp"), and a scripted mock for tests.
package recognizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// ErrRecognition indicates the external recognizer failed. The segment is
// discarded and the pipeline resumes listening; retry policy lives in the
// orchestrator, never here.
var ErrRecognition = errors.New("recognizer: recognition failed")

// Recognizer is the external recognition boundary. Transcribe accepts
// float32 samples in [-1.0, 1.0] at the given rate and blocks until text is
// available or ctx is cancelled.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
	io.Closer
}

// Warmup runs one silent buffer through r so the first real utterance does
// not pay model load or connection setup latency. Failures are reported but
// are not fatal; the caller decides.
func Warmup(ctx context.Context, r Recognizer, sampleRate, numSamples int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	_, err := r.Transcribe(ctx, make([]float32, numSamples), sampleRate)
	if err != nil {
		logger.Warn("recognizer warm-up failed", "error", err)
		return err
	}
	logger.Info("recognizer warmed up", "took", time.Since(start))
	return nil
}

//go:build !portaudio

package audioio

import (
	"errors"
	"log/slog"
)

// newPortAudioSource is unavailable without the "portaudio" build tag, which
// requires the PortAudio C library at link time.
func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	return nil, errors.New("audioio: portaudio backend not compiled in (build with -tags portaudio)")
}

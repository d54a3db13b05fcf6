//go:build !whispercpp

package recognizer

import (
	"errors"
	"log/slog"
)

// NewNative requires the "whispercpp" build tag, which links the
// whisper.cpp static library through CGO.
func NewNative(modelPath, language string, logger *slog.Logger) (Recognizer, error) {
	return nil, errors.New("recognizer: whisper.cpp support not compiled in (build with -tags whispercpp)")
}

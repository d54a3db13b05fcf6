//go:build whispercpp

package recognizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Native runs whisper.cpp inference in-process through the CGO bindings.
// The whisper.cpp static library and headers must be available at link
// time. The model is loaded once; each Transcribe call gets a fresh
// context because contexts are not safe for reuse across goroutines.
type Native struct {
	model    whisperlib.Model
	language string
	logger   *slog.Logger
}

// NewNative loads a whisper.cpp model from modelPath.
func NewNative(modelPath, language string, logger *slog.Logger) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("recognizer: model path required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if language == "" {
		language = "en"
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("recognizer: load model %q: %w", modelPath, err)
	}
	logger.Info("whisper model loaded", "path", modelPath)
	return &Native{model: model, language: language, logger: logger}, nil
}

func (n *Native) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wctx, err := n.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("%w: create context: %v", ErrRecognition, err)
	}
	if err := wctx.SetLanguage(n.language); err != nil {
		n.logger.Warn("failed to set language, using default", "language", n.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("%w: process audio: %v", ErrRecognition, err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: read segment: %v", ErrRecognition, err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (n *Native) Close() error {
	if n.model != nil {
		return n.model.Close()
	}
	return nil
}

var _ Recognizer = (*Native)(nil)

package recognizer

import (
	"fmt"
	"log/slog"
	"time"
)

// Backends selectable in configuration.
const (
	BackendHTTP   = "http"
	BackendNative = "native"
	BackendMock   = "mock"
)

// Config selects and configures a recognition backend.
type Config struct {
	// Backend is one of "http", "native" or "mock". Default: "http".
	Backend string `yaml:"backend" json:"backend"`

	// URL is the whisper-server base URL (http backend).
	URL string `yaml:"url" json:"url"`

	// ModelPath is the whisper.cpp model file (native backend).
	ModelPath string `yaml:"model_path" json:"model_path"`

	// Language is an optional BCP-47 hint.
	Language string `yaml:"language" json:"language"`

	// Model is an optional model identifier (http backend).
	Model string `yaml:"model" json:"model"`

	// Timeout bounds one http inference round trip.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// New creates the configured recognizer.
func New(cfg Config, logger *slog.Logger) (Recognizer, error) {
	switch cfg.Backend {
	case "", BackendHTTP:
		return NewHTTP(HTTPConfig{
			URL:      cfg.URL,
			Language: cfg.Language,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		}, logger)
	case BackendNative:
		return NewNative(cfg.ModelPath, cfg.Language, logger)
	case BackendMock:
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("recognizer: unknown backend %q", cfg.Backend)
	}
}

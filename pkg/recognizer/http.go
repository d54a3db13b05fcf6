package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Djarid/vinput/internal/httpc"
)

// DefaultHTTPTimeout bounds one inference round trip. Long utterances on a
// CPU-only server can take a while.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPConfig configures the whisper-server client.
type HTTPConfig struct {
	// URL is the whisper-server base URL, e.g. "http://localhost:8080".
	URL string `yaml:"url" json:"url"`

	// Language is an optional BCP-47 hint forwarded to the server.
	Language string `yaml:"language" json:"language"`

	// Model is an optional model identifier forwarded to the server.
	Model string `yaml:"model" json:"model"`

	// Timeout bounds one request. Default: DefaultHTTPTimeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// HTTP submits utterances to a running whisper-server (POST /inference as
// multipart form data) and returns the transcribed text.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTP creates a whisper-server client.
func NewHTTP(cfg HTTPConfig, logger *slog.Logger) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, errors.New("recognizer: server URL required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTP{
		cfg:    cfg,
		client: httpc.NewClient(timeout),
		logger: logger,
	}, nil
}

// Transcribe encodes samples as WAV and POSTs them to the server. Any
// transport or server failure wraps ErrRecognition.
func (h *HTTP) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	wav := encodeWAV(samples, sampleRate)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("%w: create form file: %v", ErrRecognition, err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("%w: write wav data: %v", ErrRecognition, err)
	}
	if h.cfg.Language != "" {
		if err := mw.WriteField("language", h.cfg.Language); err != nil {
			return "", fmt.Errorf("%w: write language field: %v", ErrRecognition, err)
		}
	}
	if h.cfg.Model != "" {
		if err := mw.WriteField("model", h.cfg.Model); err != nil {
			return "", fmt.Errorf("%w: write model field: %v", ErrRecognition, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: close multipart writer: %v", ErrRecognition, err)
	}

	endpoint := strings.TrimRight(h.cfg.URL, "/") + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrRecognition, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: server returned HTTP %d", ErrRecognition, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrRecognition, err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrRecognition, err)
	}

	text := strings.TrimSpace(result.Text)
	h.logger.Debug("transcription complete", "took", time.Since(start), "chars", len(text))
	return text, nil
}

// Close is a no-op; the client holds no persistent resources.
func (h *HTTP) Close() error {
	return nil
}

var _ Recognizer = (*HTTP)(nil)

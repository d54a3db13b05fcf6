package recognizer

import (
	"context"
	"sync"
)

// Mock is a scripted Recognizer for tests. It returns queued results in
// order, then empty text, and records every call.
type Mock struct {
	mu      sync.Mutex
	results []string
	errs    []error
	calls   int
	lastLen int
}

// NewMock creates a mock that returns the given transcripts in order.
func NewMock(results ...string) *Mock {
	return &Mock{results: results}
}

// QueueError makes the next call fail with err (after queued results are
// exhausted the error queue is consulted first).
func (m *Mock) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

func (m *Mock) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastLen = len(samples)

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}
	if len(m.results) > 0 {
		text := m.results[0]
		m.results = m.results[1:]
		return text, nil
	}
	return "", nil
}

func (m *Mock) Close() error {
	return nil
}

// Calls returns the number of Transcribe invocations.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastLen returns the sample count of the most recent call.
func (m *Mock) LastLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLen
}

var _ Recognizer = (*Mock)(nil)

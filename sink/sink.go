// Package sink persists detection outcomes: JSON Lines for pipelines,
// SQLite for local accumulation across batches, and a webhook notifier
// for downstream systems.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/roomsage/bookscan/models"
)

// Sink receives outcomes as they complete and is closed once per batch.
type Sink interface {
	Write(ctx context.Context, outcome *models.DetectionOutcome) error
	Close() error
}

// JSONLSink writes one JSON object per line.
type JSONLSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

// NewJSONL writes outcomes to w. If w is also an io.Closer it is closed
// by Close.
func NewJSONL(w io.Writer) *JSONLSink {
	s := &JSONLSink{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

func (s *JSONLSink) Write(ctx context.Context, outcome *models.DetectionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(outcome); err != nil {
		return fmt.Errorf("jsonl sink: %w", err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

// Multi fans every outcome out to all sinks. The first write error is
// returned but later sinks still receive the outcome.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks. A nil or empty list is valid and discards
// everything.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Write(ctx context.Context, outcome *models.DetectionOutcome) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Write(ctx, outcome); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Multi) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

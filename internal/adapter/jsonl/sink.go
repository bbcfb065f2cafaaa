// Package jsonl implements the decision log port as an append-only
// JSONL file, one record per line.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
)

const appendRetries = 3

// Sink appends decision records to a file. Writes are serialized by a
// mutex so concurrent appends never interleave within a record.
type Sink struct {
	mu   sync.Mutex
	path string
}

// New creates a Sink writing to the given path. The file is created on
// first append.
func New(path string) *Sink {
	return &Sink{path: path}
}

// Append marshals the record and writes it as one line. Transient write
// failures are retried a few times before being reported.
func (s *Sink) Append(_ context.Context, rec *gate.DecisionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.TaskID, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		if lastErr = s.writeLine(data); lastErr == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return fmt.Errorf("append record %s: %w", rec.TaskID, lastErr)
}

func (s *Sink) writeLine(line []byte) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(line); err != nil {
		return err
	}
	return f.Sync()
}

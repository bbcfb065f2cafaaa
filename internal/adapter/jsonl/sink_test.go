package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
)

func testRecord(taskID string) *gate.DecisionRecord {
	signals := gate.Signals{ValidatorPassRate: 1, UncertaintyMargin: 0.5, Reversibility: 1, Consistency: 1}
	out := gate.DefaultOptions().Decide(gate.Sigma(signals), gate.PolicyInput{Signals: signals})
	return gate.NewRecord(taskID, gate.TaskCard{Goal: "test"}, signals, out, time.Millisecond, gate.DefaultOptions())
}

func TestAppendAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	sink := New(path)

	rec := testRecord("task-1")
	if err := sink.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var back gate.DecisionRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal line: %v", err)
	}
	if back.TaskID != rec.TaskID || back.Sigma != rec.Sigma || back.Decision != rec.Decision {
		t.Errorf("round trip mismatch: got %+v, want %+v", back, *rec)
	}
}

func TestConcurrentAppendsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	sink := New(path)

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = sink.Append(context.Background(), testRecord(fmt.Sprintf("task-%d", i)))
		}(i)
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec gate.DecisionRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not a valid record: %v", lines, err)
		}
		lines++
	}
	if lines != n {
		t.Errorf("expected %d records, got %d", n, lines)
	}
}

func TestAppendOnlyNeverRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	sink := New(path)

	_ = sink.Append(context.Background(), testRecord("first"))
	before, _ := os.ReadFile(path)

	_ = sink.Append(context.Background(), testRecord("second"))
	after, _ := os.ReadFile(path)

	if len(after) <= len(before) || string(after[:len(before)]) != string(before) {
		t.Error("append must not rewrite earlier records")
	}
}

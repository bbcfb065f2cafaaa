package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kestrelops/sigmagate/internal/domain"
	"github.com/kestrelops/sigmagate/internal/domain/gate"
)

// DecisionStore implements the decision log port using PostgreSQL
// (append-only) and adds the read side used by the HTTP surface.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a DecisionStore backed by the given pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Append inserts a decision record into the decision_records table.
// Records are never updated in place.
func (s *DecisionStore) Append(ctx context.Context, rec *gate.DecisionRecord) error {
	card, err := json.Marshal(rec.TaskCard)
	if err != nil {
		return fmt.Errorf("marshal task card: %w", err)
	}
	signals, err := json.Marshal(rec.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO decision_records (task_id, ts, phase, task_card, signals, sigma, decision, explanation, playbook_lesson, elapsed_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.TaskID, rec.Timestamp, string(rec.Phase), card, signals,
		rec.Sigma, string(rec.Decision), rec.Explanation, rec.PlaybookLesson, rec.ElapsedMS)
	if err != nil {
		return fmt.Errorf("append decision record: %w", err)
	}
	return nil
}

// recordColumns is the SELECT column list for decision_records queries.
const recordColumns = `task_id, ts, phase, task_card, signals, sigma, decision, explanation, playbook_lesson, elapsed_ms`

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*gate.DecisionRecord, error) {
	var (
		rec     gate.DecisionRecord
		phase   string
		dec     string
		card    []byte
		signals []byte
	)
	err := scanner.Scan(&rec.TaskID, &rec.Timestamp, &phase, &card, &signals,
		&rec.Sigma, &dec, &rec.Explanation, &rec.PlaybookLesson, &rec.ElapsedMS)
	if err != nil {
		return nil, err
	}
	rec.Phase = gate.Decision(phase)
	rec.Decision = gate.Decision(dec)
	if err := json.Unmarshal(card, &rec.TaskCard); err != nil {
		return nil, fmt.Errorf("unmarshal task card: %w", err)
	}
	if err := json.Unmarshal(signals, &rec.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal signals: %w", err)
	}
	return &rec, nil
}

// GetByTaskID returns the most recent record for a task id.
func (s *DecisionStore) GetByTaskID(ctx context.Context, taskID string) (*gate.DecisionRecord, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM decision_records WHERE task_id = $1 ORDER BY id DESC LIMIT 1`, recordColumns), taskID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get decision record %s: %w", taskID, err)
	}
	return rec, nil
}

// ListRecent returns the most recent records, newest first.
func (s *DecisionStore) ListRecent(ctx context.Context, limit int) ([]gate.DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM decision_records ORDER BY id DESC LIMIT $1`, recordColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("list decision records: %w", err)
	}
	defer rows.Close()

	var records []gate.DecisionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

package gate

import (
	"math"
	"time"
)

// TaskCard is the caller-owned context describing what the candidate is
// meant to satisfy. The gate passes it through to decision records
// unchanged.
type TaskCard struct {
	Goal  string         `json:"goal"`
	Rules []string       `json:"rules"`
	Facts map[string]any `json:"facts"`
	Plan  []string       `json:"plan"`
}

// DecisionRecord is the immutable audit snapshot of one evaluation.
// Created once per call and never mutated afterwards; ownership passes
// to the decision log sink.
type DecisionRecord struct {
	TaskID         string   `json:"task_id"`
	Timestamp      string   `json:"timestamp"`
	Phase          Decision `json:"phase"`
	TaskCard       TaskCard `json:"task_card"`
	Signals        Signals  `json:"signals"`
	Sigma          float64  `json:"sigma"`
	Decision       Decision `json:"decision"`
	Explanation    string   `json:"explanation"`
	PlaybookLesson string   `json:"playbook_lesson"`
	ElapsedMS      float64  `json:"elapsed_ms"`
}

// NewRecord builds a DecisionRecord with the rounding conventions of
// the decision log format: signals and sigma to three decimals,
// elapsed milliseconds to one.
func NewRecord(taskID string, card TaskCard, signals Signals, outcome Outcome, elapsed time.Duration, opts Options) *DecisionRecord {
	sigma := round3(outcome.Sigma)
	return &DecisionRecord{
		TaskID:         taskID,
		Timestamp:      time.Now().Format(time.RFC3339Nano),
		Phase:          outcome.Decision,
		TaskCard:       card,
		Signals:        signals.Rounded(),
		Sigma:          sigma,
		Decision:       outcome.Decision,
		Explanation:    outcome.Explanation,
		PlaybookLesson: PlaybookLesson(outcome.Decision, signals, card, opts.withDefaults().Threshold),
		ElapsedMS:      math.Round(float64(elapsed.Microseconds())/100) / 10,
	}
}

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run is an audit record of one action run.
type Run struct {
	ID       string
	Action   string
	Outcome  string
	Message  string
	Errors   []string
	Saved    bool
	Started  time.Time
	Duration time.Duration
}

// RecordRun writes r to the audit log and returns its id. an empty id gets a new uuid.
func (s *Store) RecordRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_runs (id, action, outcome, message, errors, saved, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Action, r.Outcome, r.Message, strings.Join(r.Errors, "\n"), r.Saved,
		toMillis(r.Started), r.Duration.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("record run %s: %w", r.Action, err)
	}
	return r.ID, nil
}

// Runs returns up to limit audit records, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, outcome, message, errors, saved, started_at, duration_ms
		 FROM action_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var res []Run
	for rows.Next() {
		var r Run
		var errs string
		var started, durationMs int64
		if err := rows.Scan(&r.ID, &r.Action, &r.Outcome, &r.Message, &errs, &r.Saved, &started, &durationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if errs != "" {
			r.Errors = strings.Split(errs, "\n")
		}
		r.Started = fromMillis(started)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return res, nil
}

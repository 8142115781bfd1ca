package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRunNotFound is returned when a run ID is not in the ledger.
	ErrRunNotFound = errors.New("run not found")

	// ErrNotRunning is returned when finishing a run that is not running.
	ErrNotRunning = errors.New("run is not running")
)

// GetRun returns a single run, including its canonical config.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, profile, config_hash, config, status, error, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. Config is omitted.
// A non-empty profile restricts the result to that profile.
// limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, profile string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile, config_hash, '', status, error, started_at, finished_at
		FROM runs
		WHERE ? = '' OR profile = ?
		ORDER BY id COLLATE BINARY DESC
		LIMIT ?
	`, profile, profile, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadStageEvents returns a run's stage events in seq order.
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadStageEvents(ctx context.Context, runID string) ([]StageEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, stage, status, error, duration_ms
		FROM stage_events
		WHERE run_id = ?
		ORDER BY seq ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stage events: %w", err)
	}
	defer rows.Close()

	events := []StageEvent{}
	for rows.Next() {
		var ev StageEvent
		var durationMS int64
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.Stage, &ev.Status, &ev.Error, &durationMS); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		ev.Duration = time.Duration(durationMS) * time.Millisecond
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage events: %w", err)
	}
	return events, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString
	if err := row.Scan(
		&run.ID,
		&run.Profile,
		&run.ConfigHash,
		&run.Config,
		&run.Status,
		&run.Error,
		&startedAt,
		&finishedAt,
	); err != nil {
		return Run{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = t

	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return run, nil
}

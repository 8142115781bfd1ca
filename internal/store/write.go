package store

import (
	"context"
	"fmt"
	"time"
)

// BeginRun inserts a run record with status running.
// A duplicate run ID is an error: run IDs are never reused.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, profile, config_hash, config, status, error, started_at)
		VALUES (?, ?, ?, ?, ?, '', ?)
	`,
		run.ID,
		run.Profile,
		run.ConfigHash,
		run.Config,
		RunRunning,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// AppendStageEvent records a stage transition.
// Uses ON CONFLICT(run_id, seq) DO NOTHING so a retried write is harmless.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) AppendStageEvent(ctx context.Context, ev StageEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_events
		(run_id, seq, stage, status, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		ev.RunID,
		ev.Seq,
		ev.Stage,
		ev.Status,
		ev.Error,
		ev.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("append stage event: %w", err)
	}
	return nil
}

// FinishRun moves a running run to its terminal status.
// Finishing a run twice, or a run that does not exist, is an error.
func (s *Store) FinishRun(ctx context.Context, runID, status, errMsg string, finishedAt time.Time) error {
	if status != RunSucceeded && status != RunFailed {
		return fmt.Errorf("finish run: invalid terminal status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error = ?, finished_at = ?
		WHERE id = ? AND status = ?
	`,
		status,
		errMsg,
		formatTime(finishedAt),
		runID,
		RunRunning,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotRunning)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

package pipeline

import (
	"time"

	"github.com/roach88/trainpipe/internal/store"
)

// Report summarizes a run. Stages lists only stages that were invoked.
// Events is the number of stage events stamped, which is also the seq of
// the last one.
type Report struct {
	RunID       string        `json:"run_id"`
	Profile     string        `json:"profile"`
	Fingerprint string        `json:"fingerprint"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Stages      []StageResult `json:"stages"`
	Events      int64         `json:"events"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// StageResult is the outcome of one invoked stage.
type StageResult struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Succeeded reports whether every stage ran and none failed.
func (r *Report) Succeeded() bool {
	return r.Status == store.RunSucceeded
}

// Duration is the wall time between start and finish.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageNames returns the invoked stage names in order.
func (r *Report) StageNames() []string {
	names := make([]string, len(r.Stages))
	for i, s := range r.Stages {
		names[i] = s.Name
	}
	return names
}

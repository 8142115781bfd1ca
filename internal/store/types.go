package store

import "time"

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Stage event statuses.
const (
	StageStarted   = "started"
	StageSucceeded = "succeeded"
	StageFailed    = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID         string     `json:"id"`
	Profile    string     `json:"profile"`
	ConfigHash string     `json:"config_hash"`
	Config     string     `json:"config,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StageEvent is one stage status transition within a run.
type StageEvent struct {
	RunID    string        `json:"run_id"`
	Seq      int64         `json:"seq"`
	Stage    string        `json:"stage"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

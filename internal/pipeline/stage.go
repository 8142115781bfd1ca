package pipeline

import (
	"context"

	"github.com/roach88/trainpipe/internal/config"
)

// Stage is one pipeline step.
//
// Run receives the resolved configuration and nothing else. A non-nil
// error marks the stage, and the run, as failed.
type Stage interface {
	Name() string
	Run(ctx context.Context, cfg *config.Config) error
}

// StageFunc adapts a function to the Stage contract.
type StageFunc func(ctx context.Context, cfg *config.Config) error

type funcStage struct {
	name string
	fn   StageFunc
}

// NewStage returns a Stage named name that calls fn.
func NewStage(name string, fn StageFunc) Stage {
	return funcStage{name: name, fn: fn}
}

func (s funcStage) Name() string { return s.name }

func (s funcStage) Run(ctx context.Context, cfg *config.Config) error {
	return s.fn(ctx, cfg)
}

// Order returns the fixed stage order: process, train, evaluate.
func Order() []string {
	return []string{config.StageProcess, config.StageTrain, config.StageEvaluate}
}

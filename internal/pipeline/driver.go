package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/roach88/trainpipe/internal/config"
	"github.com/roach88/trainpipe/internal/store"
)

// Recorder persists runs and stage events. *store.Store implements it.
type Recorder interface {
	BeginRun(ctx context.Context, run store.Run) error
	AppendStageEvent(ctx context.Context, ev store.StageEvent) error
	FinishRun(ctx context.Context, runID, status, errMsg string, finishedAt time.Time) error
}

// Hook runs once per run before the first stage.
type Hook func(ctx context.Context, cfg *config.Config) error

// Options configures a Driver. All fields are optional.
type Options struct {
	// Recorder receives the run and its stage events. Nil disables recording.
	Recorder Recorder

	// RunIDs defaults to UUIDv7Generator.
	RunIDs RunIDGenerator

	// Clock measures stage durations. Defaults to the real clock.
	Clock clockwork.Clock

	// Logger defaults to a discard logger.
	Logger *slog.Logger

	// Before hooks run in order after the run is recorded.
	Before []Hook
}

// Driver runs a fixed sequence of stages.
type Driver struct {
	stages   []Stage
	recorder Recorder
	runIDs   RunIDGenerator
	clock    clockwork.Clock
	logger   *slog.Logger
	before   []Hook
}

// New creates a Driver for stages, which run in slice order.
// The slice is copied, so later changes by the caller have no effect.
func New(stages []Stage, opts Options) *Driver {
	d := &Driver{
		stages:   append([]Stage(nil), stages...),
		recorder: opts.Recorder,
		runIDs:   opts.RunIDs,
		clock:    opts.Clock,
		logger:   opts.Logger,
		before:   append([]Hook(nil), opts.Before...),
	}
	if d.runIDs == nil {
		d.runIDs = UUIDv7Generator{}
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

// Stages returns the stage names in run order.
func (d *Driver) Stages() []string {
	names := make([]string, len(d.stages))
	for i, s := range d.stages {
		names[i] = s.Name()
	}
	return names
}

// run is the state of one Run call.
type run struct {
	d      *Driver
	report *Report
	seq    *Clock
	log    *slog.Logger
}

// Run executes every stage in order with cfg.
//
// The returned Report is non-nil whenever the run was started, including on
// failure. A stage failure is returned as *StageError. A stage panic is
// recorded as a failed run and then re-raised.
func (d *Driver) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	if cfg == nil {
		return nil, errors.New("run pipeline: nil config")
	}

	id := d.runIDs.Generate()
	r := &run{
		d:   d,
		seq: NewClock(),
		log: d.logger.With("run_id", id, "profile", cfg.Profile()),
		report: &Report{
			RunID:       id,
			Profile:     cfg.Profile(),
			Fingerprint: cfg.Fingerprint(),
			Status:      store.RunRunning,
			Stages:      []StageResult{},
			StartedAt:   d.clock.Now(),
		},
	}

	if err := r.begin(ctx, cfg); err != nil {
		return nil, err
	}
	r.log.Info("run started", "stages", d.Stages(), "config_hash", cfg.Fingerprint())

	defer func() {
		if p := recover(); p != nil {
			r.finish(ctx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	ctx = WithRunInfo(ctx, RunInfo{ID: id, Profile: cfg.Profile(), Fingerprint: cfg.Fingerprint()})

	for i, hook := range d.before {
		if err := hook(ctx, cfg); err != nil {
			err = &HookError{Index: i, Err: err}
			r.finish(ctx, err)
			return r.report, err
		}
	}

	for _, st := range d.stages {
		if err := ctx.Err(); err != nil {
			r.finish(ctx, err)
			return r.report, err
		}
		if err := r.stage(ctx, st, cfg); err != nil {
			err = &StageError{Stage: st.Name(), RunID: id, Err: err}
			r.finish(ctx, err)
			return r.report, err
		}
	}

	r.finish(ctx, nil)
	return r.report, nil
}

// begin records the run. Failing to record the start is fatal.
func (r *run) begin(ctx context.Context, cfg *config.Config) error {
	if r.d.recorder == nil {
		return nil
	}
	canonical, err := cfg.Canonical()
	if err != nil {
		return fmt.Errorf("canonical config: %w", err)
	}
	err = r.d.recorder.BeginRun(ctx, store.Run{
		ID:         r.report.RunID,
		Profile:    r.report.Profile,
		ConfigHash: r.report.Fingerprint,
		Config:     string(canonical),
		StartedAt:  r.report.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// stage invokes one stage and records its events.
func (r *run) stage(ctx context.Context, st Stage, cfg *config.Config) (err error) {
	name := st.Name()
	start := r.d.clock.Now()
	r.event(ctx, store.StageEvent{Stage: name, Status: store.StageStarted})
	r.log.Info("stage started", "stage", name)

	defer func() {
		p := recover()
		if p != nil {
			err = fmt.Errorf("panic: %v", p)
		}

		res := StageResult{Name: name, Status: store.StageSucceeded, Duration: r.d.clock.Since(start)}
		if err != nil {
			res.Status = store.StageFailed
			res.Error = err.Error()
		}
		r.report.Stages = append(r.report.Stages, res)
		r.event(ctx, store.StageEvent{
			Stage:    name,
			Status:   res.Status,
			Error:    res.Error,
			Duration: res.Duration,
		})

		if err != nil {
			r.log.Error("stage failed", "stage", name, "duration", res.Duration, "error", err)
		} else {
			r.log.Info("stage finished", "stage", name, "duration", res.Duration)
		}

		if p != nil {
			panic(p)
		}
	}()

	return st.Run(ctx, cfg)
}

// event stamps ev with the run ID and the next seq and records it.
// Recording failures after the run started are logged, not returned.
func (r *run) event(ctx context.Context, ev store.StageEvent) {
	ev.RunID = r.report.RunID
	ev.Seq = r.seq.Next()
	if r.d.recorder == nil {
		return
	}
	if err := r.d.recorder.AppendStageEvent(context.WithoutCancel(ctx), ev); err != nil {
		r.log.Warn("record stage event failed", "stage", ev.Stage, "seq", ev.Seq, "error", err)
	}
}

// finish sets the terminal status. It is called exactly once per run.
func (r *run) finish(ctx context.Context, runErr error) {
	r.report.FinishedAt = r.d.clock.Now()
	r.report.Events = r.seq.Current()
	r.report.Status = store.RunSucceeded
	if runErr != nil {
		r.report.Status = store.RunFailed
		r.report.Error = runErr.Error()
	}

	if runErr != nil {
		r.log.Error("run failed", "error", runErr, "duration", r.report.Duration())
	} else {
		r.log.Info("run succeeded", "duration", r.report.Duration())
	}

	if r.d.recorder == nil {
		return
	}
	err := r.d.recorder.FinishRun(
		context.WithoutCancel(ctx),
		r.report.RunID,
		r.report.Status,
		r.report.Error,
		r.report.FinishedAt,
	)
	if err != nil {
		r.log.Warn("record run finish failed", "error", err)
	}
}

package testutil

import (
	"context"
	"os"
	"sync"

	"github.com/roach88/trainpipe/internal/config"
	"github.com/roach88/trainpipe/internal/pipeline"
)

// Call is one recorded stage invocation.
type Call struct {
	Stage  string
	Config *config.Config

	// Env holds the watched variables as seen when the stage ran.
	// Unset variables are absent.
	Env map[string]string
}

// CallLog collects stage invocations across stubs.
type CallLog struct {
	mu    sync.Mutex
	calls []Call
}

func (l *CallLog) add(c Call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

// Calls returns the recorded calls in invocation order.
func (l *CallLog) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// Names returns the invoked stage names in order.
func (l *CallLog) Names() []string {
	calls := l.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Stage
	}
	return names
}

// StubStage is a pipeline.Stage that records its call and then returns Err,
// or panics with Panic when it is non-nil.
type StubStage struct {
	StageName string
	Log       *CallLog
	Err       error
	Panic     any

	// WatchEnv names process environment variables to capture on each call.
	WatchEnv []string

	// OnRun, if set, runs after the call is recorded.
	OnRun func(ctx context.Context, cfg *config.Config)
}

// Name implements pipeline.Stage.
func (s *StubStage) Name() string {
	return s.StageName
}

// Run implements pipeline.Stage.
func (s *StubStage) Run(ctx context.Context, cfg *config.Config) error {
	env := make(map[string]string)
	for _, key := range s.WatchEnv {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	if s.Log != nil {
		s.Log.add(Call{Stage: s.StageName, Config: cfg, Env: env})
	}
	if s.OnRun != nil {
		s.OnRun(ctx, cfg)
	}
	if s.Panic != nil {
		panic(s.Panic)
	}
	return s.Err
}

// StubPipeline returns recording stubs for the standard stage order.
// Stages named in failures return that error.
func StubPipeline(log *CallLog, failures map[string]error, watchEnv ...string) []pipeline.Stage {
	var stages []pipeline.Stage
	for _, name := range pipeline.Order() {
		stages = append(stages, &StubStage{
			StageName: name,
			Log:       log,
			Err:       failures[name],
			WatchEnv:  watchEnv,
		})
	}
	return stages
}

// StubRegistry is StubPipeline wrapped in a registry.
func StubRegistry(log *CallLog, failures map[string]error, watchEnv ...string) *pipeline.Registry {
	reg := pipeline.NewRegistry()
	for _, s := range StubPipeline(log, failures, watchEnv...) {
		reg.MustRegister(s)
	}
	return reg
}

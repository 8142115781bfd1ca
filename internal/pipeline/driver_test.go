package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trainpipe/internal/config"
	"github.com/roach88/trainpipe/internal/pipeline"
	"github.com/roach88/trainpipe/internal/secrets"
	"github.com/roach88/trainpipe/internal/store"
	"github.com/roach88/trainpipe/internal/testutil"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRun_StageOrderAndSharedConfig(t *testing.T) {
	cfg := testutil.LoadConfig(t, "run:\n  name: order\n")
	log := &testutil.CallLog{}

	d := pipeline.New(testutil.StubPipeline(log, nil), pipeline.Options{
		RunIDs: pipeline.NewFixedGenerator("run-1"),
	})
	report, err := d.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"process", "train", "evaluate"}, log.Names())
	for _, c := range log.Calls() {
		assert.Same(t, cfg, c.Config, "stage %s got a different config", c.Stage)
	}
	assert.True(t, report.Succeeded())
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, []string{"process", "train", "evaluate"}, report.StageNames())
	assert.Equal(t, int64(6), report.Events)
}

func TestRun_FailFast(t *testing.T) {
	cfg := testutil.LoadConfig(t, "{}")
	log := &testutil.CallLog{}
	boom := errors.New("training diverged")

	d := pipeline.New(testutil.StubPipeline(log, map[string]error{"train": boom}), pipeline.Options{
		RunIDs: pipeline.NewFixedGenerator("run-1"),
	})
	report, err := d.Run(context.Background(), cfg)
	require.Error(t, err)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "train", pipeline.FailedStage(err))
	assert.Equal(t, []string{"process", "train"}, log.Names(), "evaluate must not run")

	require.NotNil(t, report)
	assert.Equal(t, store.RunFailed, report.Status)
	require.Len(t, report.Stages, 2)
	assert.Equal(t, store.StageSucceeded, report.Stages[0].Status)
	assert.Equal(t, store.StageFailed, report.Stages[1].Status)
	assert.Equal(t, "training diverged", report.Stages[1].Error)
	assert.Equal(t, int64(4), report.Events)
}

func TestRun_FirstStageFails(t *testing.T) {
	cfg := testutil.LoadConfig(t, "{}")
	log := &testutil.CallLog{}

	d := pipeline.New(testutil.StubPipeline(log, map[string]error{"process": errors.New("no data")}), pipeline.Options{})
	_, err := d.Run(context.Background(), cfg)

	assert.Equal(t, "process", pipeline.FailedStage(err))
	assert.Equal(t, []string{"process"}, log.Names())
}

func TestRun_HookErrorStopsBeforeStages(t *testing.T) {
	cfg := testutil.LoadConfig(t, "{}")
	log := &testutil.CallLog{}
	hookErr := errors.New("credentials unavailable")

	d := pipeline.New(testutil.StubPipeline(log, nil), pipeline.Options{
		Before: []pipeline.Hook{
			func(context.Context, *config.Config) error { return hookErr },
		},
	})
	report, err := d.Run(context.Background(), cfg)

	assert.ErrorIs(t, err, hookErr)
	var he *pipeline.HookError
	assert.ErrorAs(t, err, &he)
	assert.Empty(t, log.Names())
	assert.Empty(t, report.Stages)
	assert.Equal(t, store.RunFailed, report.Status)
}

func TestRun_ExportHookSetsEnvBeforeFirstStage(t *testing.T) {
	const userVar, passVar = "TRAINPIPE_TEST_USER", "TRAINPIPE_TEST_PASS"
	// Registered for restore; the values are cleared so only the hook sets them.
	t.Setenv(userVar, "")
	t.Setenv(passVar, "")
	require.NoError(t, os.Unsetenv(userVar))
	require.NoError(t, os.Unsetenv(passVar))

	cfg := testutil.LoadConfig(t, "{}")
	log := &testutil.CallLog{}
	binding := secrets.Binding{UsernameVar: userVar, PasswordVar: passVar}
	creds := secrets.Credentials{Username: "injected-user", Password: "injected-pass"}

	d := pipeline.New(testutil.StubPipeline(log, nil, userVar, passVar), pipeline.Options{
		Before: []pipeline.Hook{
			func(context.Context, *config.Config) error {
				return secrets.Exporter{Binding: binding}.Export(creds)
			},
		},
	})
	_, err := d.Run(context.Background(), cfg)
	require.NoError(t, err)

	calls := log.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "process", calls[0].Stage)
	assert.Equal(t, map[string]string{userVar: "injected-user", passVar: "injected-pass"}, calls[0].Env)
}

func TestRun_RunInfoInContext(t *testing.T) {
	cfg := testutil.LoadConfig(t, "{}")
	var got pipeline.RunInfo

	stage := pipeline.NewStage("process", func(ctx context.Context, _ *config.Config) error {
		info, ok := pipeline.RunInfoFrom(ctx)
		require.True(t, ok)
		got = info
		return nil
	})
	d := pipeline.New([]pipeline.Stage{stage}, pipeline.Options{RunIDs: pipeline.NewFixedGenerator("run-ctx")})
	_, err := d.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "run-ctx", got.ID)
	assert.Equal(t, testutil.ProfileName, got.Profile)
	assert.Equal(t, cfg.Fingerprint(), got.Fingerprint)
}

func TestRun_CancelledBetweenStages(t *testing.T) {
	cfg := testutil.LoadConfig(t, "{}")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &testutil.CallLog{}
	stages := testutil.StubPipeline(log, nil)
	stages[0].(*testutil.StubStage).OnRun = func(context.Context, *config.Config) { cancel() }

	report, err := pipeline.New(stages, pipeline.Options{}).Run(ctx, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pipeline.FailedStage(err))
	assert.Equal(t, []string{"process"}, log.Names())
	assert.Equal(t, store.RunFailed, report.Status)
}

func TestRun_NilConfig(t *testing.T) {
	_, err := pipeline.New(nil, pipeline.Options{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRun_RecordsLedger(t *testing.T) {
	cfg := testutil.LoadConfig(t, "{}")
	st := openStore(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	stages := testutil.StubPipeline(&testutil.CallLog{}, map[string]error{"evaluate": errors.New("metric below threshold")})
	stages[1].(*testutil.StubStage).OnRun = func(context.Context, *config.Config) { clock.Advance(2 * time.Second) }

	d := pipeline.New(stages, pipeline.Options{
		Recorder: st,
		RunIDs:   pipeline.NewFixedGenerator("run-ledger"),
		Clock:    clock,
	})
	report, err := d.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, 2*time.Second, report.Duration())

	run, err := st.GetRun(context.Background(), "run-ledger")
	require.NoError(t, err)
	assert.Equal(t, store.RunFailed, run.Status)
	assert.Equal(t, cfg.Fingerprint(), run.ConfigHash)
	assert.Contains(t, run.Error, "stage evaluate failed")
	canonical, err := cfg.Canonical()
	require.NoError(t, err)
	assert.Equal(t, string(canonical), run.Config)

	events, err := st.ReadStageEvents(context.Background(), "run-ledger")
	require.NoError(t, err)
	type row struct {
		seq    int64
		stage  string
		status string
	}
	var got []row
	for _, ev := range events {
		got = append(got, row{ev.Seq, ev.Stage, ev.Status})
	}
	assert.Equal(t, []row{
		{1, "process", store.StageStarted},
		{2, "process", store.StageSucceeded},
		{3, "train", store.StageStarted},
		{4, "train", store.StageSucceeded},
		{5, "evaluate", store.StageStarted},
		{6, "evaluate", store.StageFailed},
	}, got)
	assert.Equal(t, 2*time.Second, events[3].Duration)
	assert.Equal(t, "metric below threshold", events[5].Error)
	assert.Equal(t, events[len(events)-1].Seq, report.Events)
}

type failingRecorder struct {
	*store.Store
}

func (failingRecorder) BeginRun(context.Context, store.Run) error {
	return errors.New("disk full")
}

func TestRun_BeginRunFailureIsFatal(t *testing.T) {
	cfg := testutil.LoadConfig(t, "{}")
	log := &testutil.CallLog{}

	d := pipeline.New(testutil.StubPipeline(log, nil), pipeline.Options{
		Recorder: failingRecorder{openStore(t)},
	})
	report, err := d.Run(context.Background(), cfg)

	assert.ErrorContains(t, err, "disk full")
	assert.Nil(t, report)
	assert.Empty(t, log.Names())
}

func TestRun_PanicRecordedAndRepanics(t *testing.T) {
	cfg := testutil.LoadConfig(t, "{}")
	st := openStore(t)
	log := &testutil.CallLog{}

	stages := testutil.StubPipeline(log, nil)
	stages[1].(*testutil.StubStage).Panic = "nil model"

	d := pipeline.New(stages, pipeline.Options{
		Recorder: st,
		RunIDs:   pipeline.NewFixedGenerator("run-panic"),
	})
	assert.PanicsWithValue(t, "nil model", func() {
		_, _ = d.Run(context.Background(), cfg)
	})
	assert.Equal(t, []string{"process", "train"}, log.Names())

	run, err := st.GetRun(context.Background(), "run-panic")
	require.NoError(t, err)
	assert.Equal(t, store.RunFailed, run.Status)
	assert.Contains(t, run.Error, "nil model")

	events, err := st.ReadStageEvents(context.Background(), "run-panic")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, store.StageFailed, events[3].Status)
}

func TestNew_CopiesStages(t *testing.T) {
	stages := testutil.StubPipeline(&testutil.CallLog{}, nil)
	d := pipeline.New(stages, pipeline.Options{})
	stages[0] = pipeline.NewStage("other", func(context.Context, *config.Config) error { return nil })

	assert.Equal(t, []string{"process", "train", "evaluate"}, d.Stages())
}

package config

import (
	"io/fs"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_TestProfileFixture(t *testing.T) {
	cfg, err := Load(LoadOptions{Dir: repoConfigDir, Profile: "test"})
	require.NoError(t, err)

	v, err := cfg.String("testvar")
	require.NoError(t, err)
	assert.Equal(t, "testvar", v)
	assert.Equal(t, "testvar", cfg.Settings().TestVar)
	assert.Equal(t, "test", cfg.Profile())

	_, err = cfg.Lookup("testvarr")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestLoad_TestProfileGolden(t *testing.T) {
	cfg, err := Load(LoadOptions{Dir: repoConfigDir, Profile: "test"})
	require.NoError(t, err)

	got, err := cfg.Canonical()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "test_profile", got)
}

func TestLoad_MainProfile(t *testing.T) {
	cfg, err := Load(LoadOptions{Dir: repoConfigDir, Profile: "main"})
	require.NoError(t, err)

	s := cfg.Settings()
	assert.Equal(t, "xgboost", s.Model.Name)
	assert.True(t, s.Tracking.Enabled)
	assert.Equal(t, []string{"python", "src/train_model.py"}, s.Stages.Train.Command)

	depth, err := cfg.Lookup("model.params.max_depth")
	require.NoError(t, err)
	assert.Equal(t, int64(6), depth)

	arg, err := cfg.String("stages.evaluate.command.1")
	require.NoError(t, err)
	assert.Equal(t, "src/evaluate_model.py", arg)

	assert.Len(t, cfg.Files(), 2)
}

func TestLoad_RoundTrip(t *testing.T) {
	cfg, err := loadProfile(t, `
run:
  name: round-trip
  seed: 7
data:
  test_size: 0.35
model:
  params:
    layers: [64, 32]
    dropout: 0.5
    activation: relu
tracking:
  experiment: "exp-1"
`)
	require.NoError(t, err)

	tests := map[string]any{
		"run.name":                  "round-trip",
		"run.seed":                  int64(7),
		"data.test_size":            0.35,
		"model.params.layers.0":     int64(64),
		"model.params.layers.1":     int64(32),
		"model.params.dropout":      0.5,
		"model.params.activation":   "relu",
		"tracking.experiment":       "exp-1",
		"run.output_dir":            "outputs",
		"tracking.enabled":          false,
	}
	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			got, err := cfg.Lookup(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoad_EmptyProfileUsesDefaults(t *testing.T) {
	cfg, err := loadProfile(t, "")
	require.NoError(t, err)

	s := cfg.Settings()
	assert.Equal(t, "trainpipe", s.Run.Name)
	assert.Equal(t, int64(42), s.Run.Seed)
	assert.InDelta(t, 0.2, s.Data.TestSize, 1e-12)
	assert.Equal(t, "MLFLOW_TRACKING_USERNAME", s.Tracking.UsernameEnv)
	assert.Equal(t, "MLFLOW_TRACKING_PASSWORD", s.Tracking.PasswordEnv)
	assert.Empty(t, s.Stages.Process.Command)
}

func TestLoad_YMLExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alt.yml", "testvar: from-yml\n")

	cfg, err := Load(LoadOptions{Dir: dir, Profile: "alt"})
	require.NoError(t, err)
	assert.Equal(t, "from-yml", cfg.Settings().TestVar)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
		path    string
	}{
		{"not yaml", "run: [unclosed", ErrCodeParse, ""},
		{"scalar top level", "just a string", ErrCodeParse, ""},
		{"unknown field", "bogus: 1", ErrCodeSchema, "bogus"},
		{"unknown nested field", "run:\n  bogus: 1", ErrCodeSchema, "run.bogus"},
		{"wrong type", "run:\n  seed: many", ErrCodeSchema, "run.seed"},
		{"constraint", "data:\n  test_size: 1.5", ErrCodeSchema, "data.test_size"},
		{"tracking without uri", "tracking:\n  enabled: true", ErrCodeInvalid, "tracking.uri"},
		{"bad timeout", "stages:\n  train:\n    timeout: soon", ErrCodeInvalid, "stages.train.timeout"},
		{"same credential vars", "tracking:\n  username_env: X\n  password_env: X", ErrCodeInvalid, "tracking.password_env"},
		{"defaults not a list", "defaults: base", ErrCodeParse, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadProfile(t, tt.content)
			require.Error(t, err)
			assert.Equal(t, tt.code, ErrorCode(err), "error: %v", err)
			if tt.path != "" {
				assert.Contains(t, err.Error(), tt.path)
			}
		})
	}
}

func TestLoad_MissingProfile(t *testing.T) {
	_, err := Load(LoadOptions{Dir: t.TempDir(), Profile: "main"})
	require.Error(t, err)
	assert.Equal(t, ErrCodeProfileNotFound, ErrorCode(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), `profile "main" not found`)
}

func TestLoad_MissingProfileName(t *testing.T) {
	_, err := Load(LoadOptions{Dir: repoConfigDir})
	require.Error(t, err)
	assert.Equal(t, ErrCodeProfileNotFound, ErrorCode(err))
}

func TestLoad_FingerprintStable(t *testing.T) {
	a, err := loadProfile(t, "run:\n  seed: 9\n")
	require.NoError(t, err)
	b, err := loadProfile(t, "", "run.seed=9")
	require.NoError(t, err)
	c, err := loadProfile(t, "run:\n  seed: 10\n")
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(LoadOptions{Dir: repoConfigDir, Profile: "test"})
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "testvar: testvar\n")
	assert.Contains(t, string(out), "  seed: 42\n")
}

func TestLoad_SettingsParamsKeepTreeTypes(t *testing.T) {
	cfg, err := loadProfile(t, `
model:
  params:
    max_depth: 6
    eta: 0.3
    layers: [64, 32]
    booster:
      rounds: 100
`)
	require.NoError(t, err)

	params := cfg.Settings().Model.Params
	assert.Equal(t, int64(6), params["max_depth"])
	assert.Equal(t, 0.3, params["eta"])
	assert.Equal(t, []any{int64(64), int64(32)}, params["layers"])
	assert.Equal(t, map[string]any{"rounds": int64(100)}, params["booster"])

	fromTree, err := cfg.Lookup("model.params")
	require.NoError(t, err)
	assert.Equal(t, fromTree, params)
}

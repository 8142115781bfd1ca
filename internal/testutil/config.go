package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/trainpipe/internal/config"
)

// ProfileName is the profile LoadConfig writes and resolves.
const ProfileName = "fixture"

// WriteProfile writes dir/<name>.yaml and returns its path.
func WriteProfile(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// LoadConfig resolves body as a standalone profile in a temp dir.
// Fails the test on any load error.
func LoadConfig(t testing.TB, body string, overrides ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	WriteProfile(t, dir, ProfileName, body)
	cfg, err := config.Load(config.LoadOptions{
		Dir:       dir,
		Profile:   ProfileName,
		Overrides: overrides,
	})
	require.NoError(t, err)
	return cfg
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// repoConfigDir is the profile directory shipped with the repository.
const repoConfigDir = "../../config"

// writeProfile writes a profile file under dir, creating parent directories.
func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// loadProfile writes a single profile to a temp dir and resolves it.
func loadProfile(t *testing.T, content string, overrides ...string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	writeProfile(t, dir, "p", content)
	return Load(LoadOptions{Dir: dir, Profile: "p", Overrides: overrides})
}

// writeFile writes raw content to dir/name.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

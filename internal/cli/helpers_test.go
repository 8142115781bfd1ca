package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/trainpipe/internal/testutil"
)

// Credential variables used by CLI test profiles, distinct from the
// defaults so a developer's real tracking credentials never leak in.
const (
	testUserVar = "TRAINPIPE_CLI_TEST_USER"
	testPassVar = "TRAINPIPE_CLI_TEST_PASS"
)

// writeConfigDir writes a config dir with two profiles:
// "tracked" (tracking enabled, credentials required) and "test".
func writeConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "outputs")

	testutil.WriteProfile(t, dir, "tracked", fmt.Sprintf(`run:
  name: cli-test
  output_dir: %q
tracking:
  enabled: true
  uri: http://tracking.invalid
  username_env: %s
  password_env: %s
`, out, testUserVar, testPassVar))
	testutil.WriteProfile(t, dir, "test", "testvar: \"testvar\"\n")
	return dir
}

// clearCredentials unsets the test credential variables for the test's
// duration and restores them afterwards.
func clearCredentials(t *testing.T) {
	t.Helper()
	for _, key := range []string{testUserVar, testPassVar} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

// execute runs the root command with args and captures both streams.
func execute(t *testing.T, deps Deps, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommandWith(deps)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

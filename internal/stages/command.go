package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"github.com/roach88/trainpipe/internal/config"
	"github.com/roach88/trainpipe/internal/pipeline"
)

// Variables exported to every stage command.
const (
	EnvConfig  = "TRAINPIPE_CONFIG"
	EnvRunID   = "TRAINPIPE_RUN_ID"
	EnvProfile = "TRAINPIPE_PROFILE"
	EnvStage   = "TRAINPIPE_STAGE"
)

// ConfigFileName is the resolved config written under each run directory.
const ConfigFileName = "config.yaml"

// ErrNoCommand is returned when a stage has no command configured.
var ErrNoCommand = errors.New("no command configured")

// Options configures command stages. All fields are optional.
type Options struct {
	// Stdout and Stderr receive the child's output. Default: os.Stdout, os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Environ returns the base environment. Default: os.Environ.
	Environ func() []string

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Environ == nil {
		o.Environ = os.Environ
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Command is a stage that runs an external process.
// The command line is read from the configuration passed to Run.
type Command struct {
	name string
	opts Options
}

// NewCommand returns the command stage for name.
func NewCommand(name string, opts Options) *Command {
	return &Command{name: name, opts: opts.withDefaults()}
}

// Name implements pipeline.Stage.
func (c *Command) Name() string {
	return c.name
}

// Run implements pipeline.Stage. A non-zero exit status is an error.
func (c *Command) Run(ctx context.Context, cfg *config.Config) error {
	settings := cfg.Settings()
	spec, ok := settings.Stages.Get(c.name)
	if !ok {
		return fmt.Errorf("unknown stage %q", c.name)
	}
	if len(spec.Command) == 0 {
		return fmt.Errorf("stages.%s.command: %w", c.name, ErrNoCommand)
	}

	timeout, err := spec.TimeoutDuration()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runID := runIDFrom(ctx, cfg)
	cfgPath, err := WriteConfig(cfg, settings.Run.OutputDir, runID)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Stdout = c.opts.Stdout
	cmd.Stderr = c.opts.Stderr
	cmd.Env = c.environ(spec, cfgPath, runID, cfg.Profile())

	c.opts.Logger.Debug("exec stage command",
		"stage", c.name,
		"argv", spec.Command,
		"dir", spec.Dir,
		"config", cfgPath,
	)

	if err := cmd.Run(); err != nil {
		if timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: timed out after %s: %w", spec.Command[0], timeout, err)
		}
		return fmt.Errorf("%s: %w", spec.Command[0], err)
	}
	return nil
}

// environ builds the child environment. Later entries win in exec.
func (c *Command) environ(spec config.StageSpec, cfgPath, runID, profile string) []string {
	env := c.opts.Environ()

	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+spec.Env[k])
	}

	return append(env,
		EnvConfig+"="+cfgPath,
		EnvRunID+"="+runID,
		EnvProfile+"="+profile,
		EnvStage+"="+c.name,
	)
}

// runIDFrom returns the driver's run ID, or a fingerprint prefix when the
// stage runs outside a driver.
func runIDFrom(ctx context.Context, cfg *config.Config) string {
	if info, ok := pipeline.RunInfoFrom(ctx); ok && info.ID != "" {
		return info.ID
	}
	fp := cfg.Fingerprint()
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return "adhoc-" + fp
}

// ConfigPath returns where the resolved config for runID is written.
func ConfigPath(outputDir, runID string) string {
	return filepath.Join(outputDir, runID, ConfigFileName)
}

// WriteConfig writes the resolved configuration as YAML for child processes
// and returns its absolute path. Rewriting the same run's file is harmless:
// the content depends only on cfg.
func WriteConfig(cfg *config.Config, outputDir, runID string) (string, error) {
	data, err := cfg.YAML()
	if err != nil {
		return "", err
	}
	path, err := filepath.Abs(ConfigPath(outputDir, runID))
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write resolved config: %w", err)
	}
	return path, nil
}

// NewRegistry registers a Command for every stage in pipeline order.
func NewRegistry(opts Options) *pipeline.Registry {
	reg := pipeline.NewRegistry()
	for _, name := range pipeline.Order() {
		reg.MustRegister(NewCommand(name, opts))
	}
	return reg
}

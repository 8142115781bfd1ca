package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/trainpipe/internal/config"
	"github.com/roach88/trainpipe/internal/pipeline"
	"github.com/roach88/trainpipe/internal/secrets"
	"github.com/roach88/trainpipe/internal/stages"
	"github.com/roach88/trainpipe/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	EnvFile  string
	Database string

	deps Deps
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, deps: deps}

	cmd := &cobra.Command{
		Use:   "run [key=value ...]",
		Short: "Run process, train and evaluate",
		Long: `Resolve a configuration profile and run the pipeline stages in order:
process, train, evaluate. Every stage receives the same resolved
configuration. The first failing stage stops the run.

Arguments override configuration values:
  key=value    replace an existing value
  +key=value   add a key that is not in the configuration
  ~key         delete a key

Tracking credentials are read from the environment, the --env-file dotenv
file, or <VAR>_FILE secret files, and exported before the first stage.

Examples:
  trainpipe run
  trainpipe run --profile test data.test_size=0.3
  trainpipe run --db ./runs.db model.params.max_depth=8`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file with tracking credentials (optional unless set explicitly)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run ledger (disabled when empty)")

	return cmd
}

func runPipeline(opts *RunOptions, overrides []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	slog.SetDefault(logger)

	cfg, err := config.Load(config.LoadOptions{
		Dir:       opts.ConfigDir,
		Profile:   opts.Profile,
		Overrides: overrides,
		Logger:    logger,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, "load configuration", err)
	}
	logger.Info("configuration resolved", "profile", cfg.Profile(), "files", cfg.Files(), "config_hash", cfg.Fingerprint())

	settings := cfg.Settings()
	binding := secrets.Binding{
		UsernameVar: settings.Tracking.UsernameEnv,
		PasswordVar: settings.Tracking.PasswordEnv,
	}
	creds, err := resolveCredentials(binding, opts.EnvFile, cmd.Flags().Changed("env-file"), settings.Tracking.Enabled)
	if err != nil {
		return formatter.Fail(ExitCommandError, "resolve tracking credentials", err)
	}

	var hooks []pipeline.Hook
	if creds.IsZero() {
		logger.Debug("no tracking credentials to export", "username_env", binding.UsernameVar, "password_env", binding.PasswordVar)
	} else {
		logger.Debug("tracking credentials resolved", "credentials", creds)
		exporter := secrets.Exporter{Binding: binding, Setenv: opts.deps.Setenv}
		hooks = append(hooks, func(context.Context, *config.Config) error {
			return exporter.Export(creds)
		})
	}

	registry := opts.deps.Stages
	if registry == nil {
		// Child output must not corrupt a JSON result on stdout.
		stdout := cmd.OutOrStdout()
		if opts.Format == "json" {
			stdout = cmd.ErrOrStderr()
		}
		registry = stages.NewRegistry(stages.Options{
			Stdout: stdout,
			Stderr: cmd.ErrOrStderr(),
			Logger: logger,
		})
	}
	stageList, err := registry.Pipeline()
	if err != nil {
		return formatter.Fail(ExitCommandError, "assemble pipeline", err)
	}

	driverOpts := pipeline.Options{
		RunIDs: opts.deps.RunIDs,
		Clock:  opts.deps.Clock,
		Logger: logger,
		Before: hooks,
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "open run ledger", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing run ledger", "error", closeErr)
			}
		}()
		driverOpts.Recorder = st
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.New(stageList, driverOpts).Run(ctx, cfg)
	if report == nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "start run", err)
	}
	if err != nil {
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeStageFailed, err.Error(), report)
		} else {
			writeReport(formatter.Writer, report)
		}
		return WrapExitError(ExitFailure, "pipeline failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	writeReport(formatter.Writer, report)
	return nil
}

// resolveCredentials reads the tracking credentials from the process
// environment first, then the dotenv file. A default env file that does not
// exist is ignored; an explicitly named one must exist.
func resolveCredentials(b secrets.Binding, envFile string, explicit, required bool) (secrets.Credentials, error) {
	chain := secrets.Chain{secrets.EnvSource{}}
	if envFile != "" {
		fileSrc, err := secrets.ReadEnvFile(envFile, !explicit)
		if err != nil {
			return secrets.Credentials{}, err
		}
		chain = append(chain, fileSrc)
	}
	return secrets.Resolve(b, chain, required)
}

// writeReport prints a run summary for humans.
func writeReport(w io.Writer, r *pipeline.Report) {
	fmt.Fprintf(w, "Run %s (profile %s, config %s)\n", r.RunID, r.Profile, shortHash(r.Fingerprint))
	for _, s := range r.Stages {
		line := fmt.Sprintf("  %-9s %-10s %s", s.Name, s.Status, s.Duration.Round(time.Millisecond))
		if s.Error != "" {
			line += "  " + s.Error
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "Status: %s\n", r.Status)
	if r.Error != "" && r.Status != store.RunSucceeded {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
}

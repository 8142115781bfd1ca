package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/trainpipe/internal/config"
)

// ConfigShowResult is the JSON payload of config show.
type ConfigShowResult struct {
	Profile     string         `json:"profile"`
	Files       []string       `json:"files"`
	Fingerprint string         `json:"fingerprint"`
	Config      map[string]any `json:"config"`
}

// ConfigValidateResult is the JSON payload of config validate.
type ConfigValidateResult struct {
	Valid       bool   `json:"valid"`
	Profile     string `json:"profile"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration profiles",
	}
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigValidateCommand(rootOpts))
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "show [key=value ...]",
		Short: "Print the resolved configuration",
		Long: `Resolve a profile with overrides and print the result without running
any stage. Text output is YAML; --format json wraps the tree in the
standard response envelope.

Examples:
  trainpipe config show
  trainpipe config show --profile test
  trainpipe config show --key data.test_size data.test_size=0.25`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(rootOpts, key, args, cmd)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "print only the value at this dotted path")
	return cmd
}

func runConfigShow(opts *RootOptions, key string, overrides []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts, overrides, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "load configuration", err)
	}
	formatter.VerboseLog("resolved %s from %v", cfg.Profile(), cfg.Files())

	if key != "" {
		v, err := cfg.Lookup(key)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "lookup", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(v)
		}
		return writeValue(formatter, v)
	}

	if formatter.Format == "json" {
		return formatter.Success(ConfigShowResult{
			Profile:     cfg.Profile(),
			Files:       cfg.Files(),
			Fingerprint: cfg.Fingerprint(),
			Config:      cfg.Tree(),
		})
	}

	data, err := cfg.YAML()
	if err != nil {
		return WrapExitError(ExitFailure, "render configuration", err)
	}
	_, err = formatter.Writer.Write(data)
	return err
}

// writeValue prints a scalar bare and anything else as JSON on one line.
func writeValue(f *OutputFormatter, v any) error {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(f.Writer, string(data))
	default:
		fmt.Fprintln(f.Writer, v)
	}
	return nil
}

func newConfigValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [key=value ...]",
		Short: "Check that a profile resolves",
		Long: `Resolve a profile with overrides and report whether it satisfies the
configuration schema. Exit code 2 means the configuration is invalid.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(rootOpts, args, cmd)
		},
	}
}

func runConfigValidate(opts *RootOptions, overrides []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts, overrides, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid configuration", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ConfigValidateResult{
			Valid:       true,
			Profile:     cfg.Profile(),
			Fingerprint: cfg.Fingerprint(),
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ profile %s is valid (config %s)\n", cfg.Profile(), shortHash(cfg.Fingerprint()))
	return nil
}

func loadConfig(opts *RootOptions, overrides []string, cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		Dir:       opts.ConfigDir,
		Profile:   opts.Profile,
		Overrides: overrides,
		Logger:    newLogger(cmd.ErrOrStderr(), opts.Verbose),
	})
}

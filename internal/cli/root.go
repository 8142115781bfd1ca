package cli

import (
	"fmt"
	"slices"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/roach88/trainpipe/internal/pipeline"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ConfigDir string
	Profile   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Deps are collaborators the commands use. Zero values select the
// production implementations; tests replace them.
type Deps struct {
	// Stages overrides the command-backed stage registry.
	Stages *pipeline.Registry

	// RunIDs overrides the UUIDv7 run ID generator.
	RunIDs pipeline.RunIDGenerator

	// Clock overrides the wall clock used for stage durations.
	Clock clockwork.Clock

	// Setenv overrides os.Setenv for credential export.
	Setenv func(key, value string) error
}

// NewRootCommand creates the root command for the trainpipe CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(Deps{})
}

// NewRootCommandWith creates the root command with injected collaborators.
func NewRootCommandWith(deps Deps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trainpipe",
		Short: "trainpipe - training pipeline driver",
		Long: `Load a layered configuration profile and run the training pipeline:
data processing, training and evaluation, strictly in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "config", "directory holding configuration profiles")
	cmd.PersistentFlags().StringVarP(&opts.Profile, "profile", "p", "main", "configuration profile to load")

	cmd.AddCommand(NewRunCommand(opts, deps))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

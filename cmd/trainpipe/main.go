// Command trainpipe runs the training pipeline: it resolves a configuration
// profile, exports the tracking credentials, and runs process, train and
// evaluate in order.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/trainpipe/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trainpipe:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flatmap/pkg/observability"
)

// Execute runs the flatmap CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// Logging:
//   - Default: info level (logs to w)
//   - With --verbose (-v): debug level, and build, cache and server events
//     are logged through observability.LogHooks
//
// The logger is attached to the command context and accessible to all
// commands via loggerFromContext.
//
// Example:
//
//	func main() {
//	    if err := cli.Execute(context.Background(), os.Stderr, os.Args[1:]); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context, w io.Writer, args []string) error {
	var verbose bool

	c := New(w, LogInfo)
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	attach := root.PersistentPreRun
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := LogInfo
		if verbose {
			level = LogDebug
			observability.NewLogHooks(c.Logger).Install()
		}
		c.SetLogLevel(level)
		if attach != nil {
			attach(cmd, args)
		}
	}

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

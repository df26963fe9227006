// Package cli implements the flatmap command-line interface.
//
// This package provides commands for building maps from a manifest,
// inspecting markup and the centreline network, serving a built map over
// HTTP and exporting it to Neo4j. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - build: Resolve sources, build the network, route paths and write the outputs
//   - markup: Parse shape-name markup and print the directives
//   - network: Render the centreline network as DOT or SVG
//   - serve: Serve a built map over HTTP
//   - export: Load the network and routed paths into a graph database
//   - cache: Manage the build cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The command's
// logger travels in its context.Context; build stages also report through
// the observability hooks, which drive the spinner.
//
// # Example
//
//	import "github.com/matzehuels/flatmap/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Stderr, os.Args[1:]); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a logger writing timestamped records to w.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one command step.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the time since newProgress, for example
// "Routed 12 paths took=1.234s". Extra key/value pairs follow.
func (p *progress) done(msg string, keyvals ...any) {
	kv := append([]any{"took", time.Since(p.start).Round(time.Millisecond)}, keyvals...)
	p.logger.Info(msg, kv...)
}

type ctxKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

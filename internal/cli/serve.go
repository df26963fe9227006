package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flatmap/internal/server"
	"github.com/matzehuels/flatmap/pkg/pipeline"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve [manifest.toml]",
		Short: "Serve a map over HTTP",
		Long: `Serve a map over HTTP.

The map is built (or read from the cache) once at startup. Features, routed
paths, diagnostics and a rendering of the centreline network are then served
as JSON documents. POST /rebuild rebuilds the map from its sources.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, path, addr string, noCache bool) error {
	logger := loggerFromContext(ctx)

	m, err := loadManifest(path)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, m, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := server.New(runner, pipeline.Options{Manifest: m, Logger: logger}, logger)
	prog := newProgress(logger)
	if err := srv.Load(ctx, false); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	prog.done(fmt.Sprintf("Loaded %s", m.ID))

	printSuccess("Serving %s", StyleHighlight.Render(m.ID))
	printKeyValue("Address", StyleLink.Render("http://"+addr))
	return srv.ListenAndServe(ctx, addr)
}

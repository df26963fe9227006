package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/pipeline"
	"github.com/matzehuels/flatmap/pkg/render/nodelink"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// networkOpts holds the command-line flags for the network command.
type networkOpts struct {
	format   string // dot or svg
	output   string // output file, stdout when empty
	routes   bool   // overlay routed paths
	detailed bool   // show edge lengths and capacities
}

// networkCommand creates the network command for rendering the centreline graph.
func (c *CLI) networkCommand() *cobra.Command {
	opts := networkOpts{format: formatSVG, routes: true}

	cmd := &cobra.Command{
		Use:   "network [manifest.toml]",
		Short: "Render the centreline network of a map",
		Long: `Render the centreline network of a map.

Nodes are the named and junction points of the network and edges are the
centrelines joining them. With --routes, edges carrying routed paths are
coloured by path type and thickened by the number of paths using them;
edges used beyond their capacity are dashed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatDOT && opts.format != formatSVG {
				return fmt.Errorf("unsupported format %q (use dot or svg)", opts.format)
			}
			return c.runNetwork(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), dot")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.routes, "routes", opts.routes, "overlay routed paths")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label edges with length and capacity")

	return cmd
}

// runNetwork builds the map without the cache and renders its graph.
func (c *CLI) runNetwork(ctx context.Context, path string, opts networkOpts) error {
	logger := loggerFromContext(ctx)

	m, err := loadManifest(path)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, m, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(logger)
	result, err := runner.Build(ctx, pipeline.Options{Manifest: m, Logger: logger})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if result.Graph == nil {
		return errors.New(errors.ErrCodeNotFound, "map %s has no centreline network", m.ID)
	}
	prog.done("Built network", "nodes", len(result.Graph.Nodes), "edges", len(result.Graph.Edges))

	dot := nodelink.ToDOT(result.Graph, result.Routes.Paths, nodelink.Options{
		Routes:   opts.routes,
		Detailed: opts.detailed,
	})
	data := []byte(dot)
	if opts.format == formatSVG {
		if data, err = nodelink.RenderSVG(dot); err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
	}

	if opts.output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Rendered network")
	printFile(opts.output)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	mapio "github.com/matzehuels/flatmap/pkg/io"
	"github.com/matzehuels/flatmap/pkg/pipeline"
)

// maxListedDiagnostics caps the diagnostics printed after a build.
const maxListedDiagnostics = 10

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	output  string // output directory
	noCache bool   // disable the build cache
	refresh bool   // rebuild even when cached
	browse  bool   // open the diagnostics browser afterwards
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build [manifest.toml]",
		Short: "Build a map from a manifest",
		Long: `Build a map from a manifest.

The build command resolves every source's shape tree into features, builds
the centreline network, routes the connectivity paths over it and writes
features.geojson, paths.geojson, diagnostics.json and index.json to the
output directory.

Results are cached by the content of every input file, so an unchanged map
is written straight from the cache. Use --refresh to force a rebuild.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default: <manifest dir>/<id>)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "rebuild even when the inputs are cached")
	cmd.Flags().BoolVar(&opts.browse, "browse", false, "browse the diagnostics interactively")

	return cmd
}

// runBuild executes the pipeline and writes its artifacts.
func (c *CLI) runBuild(ctx context.Context, path string, opts buildOpts) error {
	logger := loggerFromContext(ctx)

	m, err := loadManifest(path)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, m, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Building %s...", m.ID))
	spinner.Start()
	defer followStages(spinner)()

	result, err := runner.Execute(ctx, pipeline.Options{Manifest: m, Refresh: opts.refresh, Logger: logger})
	if err != nil {
		spinner.StopWithError("Build failed")
		return fmt.Errorf("build: %w", err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Built %s", m.ID))

	output := opts.output
	if output == "" {
		output = filepath.Join(m.Dir, m.ID)
	}
	if err := mapio.ExportDir(output, result.Artifacts); err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}

	printSuccess("Map %s", StyleHighlight.Render(m.ID))
	printStats(result.Stats, result.CacheInfo.BuildHit)
	names := make([]string, 0, len(result.Artifacts))
	for name := range result.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printFile(filepath.Join(output, name))
	}

	if opts.browse && result.Diagnostics.Len() > 0 {
		model := NewDiagnosticsModel(result.Diagnostics.Items())
		if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("browse diagnostics: %w", err)
		}
		return nil
	}

	if result.Diagnostics.Len() > 0 {
		printNewline()
		printDiagnostics(result.Diagnostics, maxListedDiagnostics)
		printNewline()
		printNextStep("Browse all diagnostics", fmt.Sprintf("%s build --browse %s", appName, path))
	}
	return nil
}

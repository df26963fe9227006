package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/export/neo4j"
	"github.com/matzehuels/flatmap/pkg/pipeline"
)

// passwordEnv overrides the manifest's Neo4j password.
const passwordEnv = "NEO4J_PASSWORD"

// exportCommand creates the export command group.
func (c *CLI) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a built map to external stores",
	}

	cmd.AddCommand(c.exportNeo4jCommand())

	return cmd
}

// exportNeo4jCommand creates the "export neo4j" subcommand.
func (c *CLI) exportNeo4jCommand() *cobra.Command {
	var cfg neo4j.Config

	cmd := &cobra.Command{
		Use:   "neo4j [manifest.toml]",
		Short: "Load the centreline network and routed paths into Neo4j",
		Long: `Load the centreline network and routed paths into Neo4j.

Connection settings come from the [neo4j] table of the manifest; flags
override them and the password may also be given in $` + passwordEnv + `.
Existing records of the same map are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExportNeo4j(cmd.Context(), args[0], cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.URI, "uri", "", "bolt URI (overrides the manifest)")
	cmd.Flags().StringVar(&cfg.User, "user", "", "user name (overrides the manifest)")
	cmd.Flags().StringVar(&cfg.Database, "database", "", "database name (overrides the manifest)")

	return cmd
}

func (c *CLI) runExportNeo4j(ctx context.Context, path string, flags neo4j.Config) error {
	logger := loggerFromContext(ctx)

	m, err := loadManifest(path)
	if err != nil {
		return err
	}
	cfg := neo4j.Config{
		URI:      m.Neo4j.URI,
		User:     m.Neo4j.User,
		Password: m.Neo4j.Password,
		Database: m.Neo4j.Database,
	}
	if flags.URI != "" {
		cfg.URI = flags.URI
	}
	if flags.User != "" {
		cfg.User = flags.User
	}
	if flags.Database != "" {
		cfg.Database = flags.Database
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		cfg.Password = pw
	}

	runner, err := c.newRunner(ctx, m, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Building %s...", m.ID))
	spinner.Start()
	defer followStages(spinner)()
	result, err := runner.Build(ctx, pipeline.Options{Manifest: m, Logger: logger})
	if err != nil {
		spinner.StopWithError("Build failed")
		return fmt.Errorf("build: %w", err)
	}
	spinner.Stop()
	if result.Graph == nil {
		return errors.New(errors.ErrCodeNotFound, "map %s has no centreline network", m.ID)
	}

	loader, err := neo4j.Connect(ctx, cfg, m.UUID().String(), logger)
	if err != nil {
		return err
	}
	defer loader.Close(ctx)

	prog := newProgress(logger)
	if err := loader.Export(ctx, result.Graph, result.Routes.Paths); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	prog.done("Exported to Neo4j", "database", cfg.Database)

	printSuccess("Exported %s", StyleHighlight.Render(m.ID))
	printKeyValue("Nodes", StyleNumber.Render(fmt.Sprint(len(result.Graph.Nodes))))
	printKeyValue("Edges", StyleNumber.Render(fmt.Sprint(len(result.Graph.Edges))))
	printKeyValue("Paths", StyleNumber.Render(fmt.Sprint(len(result.Routes.Paths))))
	printKeyValue("Database", cfg.Database)
	return nil
}

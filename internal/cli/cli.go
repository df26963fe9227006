// Package cli implements the flatmap command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flatmap/pkg/buildinfo"
	"github.com/matzehuels/flatmap/pkg/cache"
	"github.com/matzehuels/flatmap/pkg/config"
	"github.com/matzehuels/flatmap/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flatmap"

	// defaultAddr is the listen address of the serve command.
	defaultAddr = "localhost:8080"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Flatmap builds anatomical flat maps from annotated drawings",
		Long:         `Flatmap turns annotated vector drawings into map features, builds the nerve centreline network they describe and routes connectivity paths over it.`,
		Version:      buildinfo.Current(),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.markupCommand())
	root.AddCommand(c.networkCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. A manifest naming a Redis
// server caches there; otherwise builds are cached on disk.
func (c *CLI) newRunner(ctx context.Context, m *config.Manifest, noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(ctx, m, noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "map:"+m.ID+":")
	return pipeline.NewRunner(store, keyer, c.Logger), nil
}

func newCache(ctx context.Context, m *config.Manifest, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if m != nil && m.Cache.Redis != "" {
		return cache.NewRedisCache(ctx, m.Cache.Redis)
	}
	dir := ""
	if m != nil && m.Cache.Dir != "" {
		dir = m.Resolve(m.Cache.Dir)
	}
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// loadManifest reads and validates the manifest at path.
func loadManifest(path string) (*config.Manifest, error) {
	m, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", path, err)
	}
	return m, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/flatmap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

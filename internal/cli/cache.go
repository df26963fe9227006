package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flatmap/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local build cache",
		Long: `Manage the local build cache.

Only the file cache is affected. Maps whose manifest names a Redis cache keep
their entries until they expire.`,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "cache directory (default: user cache dir)")

	cmd.AddCommand(c.cacheClearCommand(&dir))
	cmd.AddCommand(c.cachePruneCommand(&dir))
	cmd.AddCommand(c.cachePathCommand(&dir))

	return cmd
}

func (c *CLI) cacheClearCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached build and rendering",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache(*dir)
			if err != nil {
				return err
			}
			n, err := fc.Clear()
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			reportSweep("Cleared", n, fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cachePruneCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and unreadable cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache(*dir)
			if err != nil {
				return err
			}
			n, err := fc.Prune()
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			reportSweep("Pruned", n, fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cachePathCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *dir
			if path == "" {
				var err error
				if path, err = cacheDir(); err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// openFileCache opens dir, or the user cache directory when dir is empty.
func openFileCache(dir string) (*cache.FileCache, error) {
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
	}
	c, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", dir, err)
	}
	return c.(*cache.FileCache), nil
}

func reportSweep(verb string, n int, dir string) {
	if n == 0 {
		printInfo("Nothing to remove")
	} else {
		printSuccess("%s %s cached entries", verb, StyleNumber.Render(fmt.Sprint(n)))
	}
	printDetail("Directory: %s", dir)
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/flatmap/pkg/cache"
	"github.com/matzehuels/flatmap/pkg/config"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "flatmap")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg", "flatmap"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()

	c, err := newCache(ctx, nil, true)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("newCache(noCache) = %T, want *cache.NullCache", c)
	}

	dir := t.TempDir()
	m := &config.Manifest{Dir: dir, Cache: config.Cache{Dir: "cache"}}
	c, err = newCache(ctx, m, false)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("newCache(dir) = %T, want *cache.FileCache", c)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache")); err != nil {
		t.Errorf("cache directory not created: %v", err)
	}
}

func TestCachePathCommand(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "path", "--dir", "/tmp/flatmap-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "/tmp/flatmap-cache" {
		t.Errorf("cache path = %q, want /tmp/flatmap-cache", got)
	}
}

func TestCacheClearCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fc, err := openFileCache(dir)
	if err != nil {
		t.Fatalf("openFileCache() error: %v", err)
	}
	_ = fc.Set(ctx, "build:a", []byte("a"), 0)
	_ = fc.Set(ctx, "build:b", []byte("b"), 0)

	root := New(os.Stderr, LogInfo).RootCommand()
	root.SetArgs([]string{"cache", "clear", "--dir", dir})
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if _, hit, _ := fc.Get(ctx, "build:a"); hit {
		t.Error("entry survived cache clear")
	}
}

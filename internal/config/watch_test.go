package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	if err := Watch(ctx, path, func(c *Config) { changes <- c }); err != nil {
		t.Fatalf("watch: %v", err)
	}

	// unrelated files are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0644); err != nil {
		t.Fatal(err)
	}
	// broken content is skipped
	if err := os.WriteFile(path, []byte("time_policy: nope"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * ReloadDelay)

	cfg := DefaultConfig()
	cfg.Flux.ColorScheme = "Freedom"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		if got.Flux.ColorScheme != "Freedom" {
			t.Errorf("expected Freedom, got %s", got.Flux.ColorScheme)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after the settings file changed")
	}
}

func TestWatchMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", FileName)
	if err := Watch(context.Background(), path, func(*Config) {}); err == nil {
		t.Error("expected error watching a missing directory")
	}
}

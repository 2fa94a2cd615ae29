package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, env := range []string{EnvBridgePort, EnvChromeProfile, EnvBookmarksFile, EnvDatabase, EnvEnrichTimeout, EnvEnrichMaxAge} {
		t.Setenv(env, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.BridgePort != 8765 {
		t.Errorf("default bridge port = %d", cfg.BridgePort)
	}
	if cfg.ChromeProfile != "Default" {
		t.Errorf("default profile = %q", cfg.ChromeProfile)
	}
	if cfg.BookmarksFile != "" {
		t.Errorf("bookmarks file should default empty, got %q", cfg.BookmarksFile)
	}
	if !strings.HasSuffix(cfg.DatabasePath, "marksman.db") {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.EnrichTimeout != 10*time.Second {
		t.Errorf("enrich timeout = %v", cfg.EnrichTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvBridgePort, "9000")
	t.Setenv(EnvChromeProfile, "Profile 1")
	t.Setenv(EnvBookmarksFile, "/tmp/Bookmarks")
	t.Setenv(EnvDatabase, "/tmp/marksman.db")
	t.Setenv(EnvEnrichTimeout, "3s")
	t.Setenv(EnvEnrichMaxAge, "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.BridgePort != 9000 {
		t.Errorf("bridge port = %d", cfg.BridgePort)
	}
	if cfg.ChromeProfile != "Profile 1" {
		t.Errorf("profile = %q", cfg.ChromeProfile)
	}
	if cfg.BookmarksFile != "/tmp/Bookmarks" {
		t.Errorf("bookmarks file = %q", cfg.BookmarksFile)
	}
	if cfg.DatabasePath != "/tmp/marksman.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.EnrichMaxAge != 48*time.Hour {
		t.Errorf("enrich max age = %v", cfg.EnrichMaxAge)
	}
	if got := cfg.BridgeURL(); got != "ws://localhost:9000/" {
		t.Errorf("bridge url = %q", got)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	for _, bad := range []string{"abc", "0", "70000", "-1"} {
		t.Setenv(EnvBridgePort, bad)
		if _, err := Load(); err == nil {
			t.Errorf("expected error for port %q", bad)
		}
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv(EnvEnrichTimeout, "ten seconds")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid duration")
	}
}

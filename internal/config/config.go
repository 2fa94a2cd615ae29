// Package config resolves runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jfelder/marksman/internal/bridge"
)

// Environment variables understood by the tool.
const (
	EnvBridgePort    = "MARKSMAN_BRIDGE_PORT"
	EnvChromeProfile = "MARKSMAN_CHROME_PROFILE"
	EnvBookmarksFile = "MARKSMAN_BOOKMARKS_FILE"
	EnvDatabase      = "MARKSMAN_DB"
	EnvEnrichTimeout = "MARKSMAN_ENRICH_TIMEOUT"
	EnvEnrichMaxAge  = "MARKSMAN_ENRICH_MAX_AGE"
)

// Config holds the resolved runtime settings.
type Config struct {
	// BridgePort is the local port the browser extension listens on.
	BridgePort int

	// ChromeProfile selects the browser profile directory ("Default",
	// "Profile 1", ...). Ignored when BookmarksFile is set.
	ChromeProfile string

	// BookmarksFile overrides the platform-derived bookmarks file path.
	BookmarksFile string

	// DatabasePath is the SQLite file shared by the ledger and the
	// metadata store.
	DatabasePath string

	// EnrichTimeout bounds each page fetch during enrichment.
	EnrichTimeout time.Duration

	// EnrichMaxAge is how old stored metadata may get before a bookmark
	// is fetched again.
	EnrichMaxAge time.Duration
}

// Load reads configuration from the environment, filling defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		BridgePort:    bridge.DefaultPort,
		ChromeProfile: "Default",
		EnrichTimeout: 10 * time.Second,
		EnrichMaxAge:  7 * 24 * time.Hour,
	}

	if v := os.Getenv(EnvBridgePort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s %q", EnvBridgePort, v)
		}
		cfg.BridgePort = port
	}
	if v := os.Getenv(EnvChromeProfile); v != "" {
		cfg.ChromeProfile = v
	}
	cfg.BookmarksFile = os.Getenv(EnvBookmarksFile)

	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.DatabasePath = v
	} else {
		path, err := DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
		cfg.DatabasePath = path
	}

	if v := os.Getenv(EnvEnrichTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvEnrichTimeout, v, err)
		}
		cfg.EnrichTimeout = d
	}
	if v := os.Getenv(EnvEnrichMaxAge); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvEnrichMaxAge, v, err)
		}
		cfg.EnrichMaxAge = d
	}

	return cfg, nil
}

// BridgeURL returns the websocket URL of the extension bridge.
func (c *Config) BridgeURL() string {
	return bridge.URLForPort(c.BridgePort)
}

// DefaultDatabasePath returns ~/.marksman/marksman.db.
func DefaultDatabasePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".marksman", "marksman.db"), nil
}

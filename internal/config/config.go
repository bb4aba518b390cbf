// ABOUTME: Migraine configuration management with backend selection.
// ABOUTME: Loads the JSON config, applies environment overrides, and opens storage.

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/migraine/internal/remote"
	"github.com/harperreed/migraine/internal/storage"
)

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// Config stores migraine tool configuration.
type Config struct {
	// Backend selects where settings and the journal live: "sqlite" (default) or "remote".
	// Device state (permissions, wearables, jobs) and the settings cache are always local.
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for the local database.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/migraine.
	DataDir string `json:"data_dir,omitempty"`

	Remote RemoteConfig `json:"remote,omitzero"`

	// LogLevel is one of debug, info, warn, error. Defaults to warn.
	LogLevel string `json:"log_level,omitempty"`
}

// RemoteConfig points at the PostgREST authority.
type RemoteConfig struct {
	URL         string `json:"url,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

// Configured reports whether enough is set to reach the remote store.
func (r RemoteConfig) Configured() bool {
	return r.URL != "" && r.APIKey != "" && r.UserID != ""
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath returns the local SQLite database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "migraine.db")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// ApplyEnv overrides file values with MIGRAINE_* environment variables.
func (c *Config) ApplyEnv() {
	c.Remote.URL = getEnv("MIGRAINE_REMOTE_URL", c.Remote.URL)
	c.Remote.APIKey = getEnv("MIGRAINE_API_KEY", c.Remote.APIKey)
	c.Remote.AccessToken = getEnv("MIGRAINE_ACCESS_TOKEN", c.Remote.AccessToken)
	c.Remote.UserID = getEnv("MIGRAINE_USER_ID", c.Remote.UserID)
	c.LogLevel = getEnv("MIGRAINE_LOG_LEVEL", c.LogLevel)
	c.Backend = getEnv("MIGRAINE_BACKEND", c.Backend)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// OpenLocal opens the on-device SQLite database.
func (c *Config) OpenLocal() (*storage.DB, error) {
	return storage.Open(c.DBPath())
}

// OpenRemote builds a client and store for the remote authority.
func (c *Config) OpenRemote() (*remote.Store, error) {
	if !c.Remote.Configured() {
		return nil, fmt.Errorf("remote backend needs url, api_key and user_id (see %s)", GetConfigPath())
	}
	client, err := remote.New(remote.Config{
		URL:         c.Remote.URL,
		APIKey:      c.Remote.APIKey,
		AccessToken: c.Remote.AccessToken,
		Retry:       remote.DefaultRetryConfig(),
		// PostgREST gateways throttle bursts from a single key
		RequestsPerSecond: 10,
		Burst:             5,
	})
	if err != nil {
		return nil, fmt.Errorf("create remote client: %w", err)
	}
	return remote.NewStore(client, c.Remote.UserID)
}

// OpenStorage returns the Repository for the configured backend. For sqlite
// this is local itself.
func (c *Config) OpenStorage(local *storage.DB) (storage.Repository, error) {
	switch c.GetBackend() {
	case BackendSQLite:
		return local, nil
	case BackendRemote:
		return c.OpenRemote()
	default:
		return nil, fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

// Level parses LogLevel.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// NewLogger returns a text logger at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "migraine", "config.json")
}

// Load reads config from disk and applies environment overrides.
func Load() (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(GetConfigPath())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

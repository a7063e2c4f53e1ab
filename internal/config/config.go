// Package config handles the XDG configuration directory, file paths and config.yaml settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "todosync"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// StoreDir is the directory holding the file-backed key-value store.
	StoreDir = "store"

	// SQLiteFile is the database filename for the sqlite store.
	SQLiteFile = "todosync.db"

	// ConfigFile is the optional settings file, without extension.
	ConfigFile = "config"

	// EnvPrefix prefixes environment overrides (TODOSYNC_STORE, ...).
	EnvPrefix = "TODOSYNC"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config keys.
const (
	keyStore       = "store"
	keyAPITimeout  = "api_timeout"
	keyOpenBrowser = "open_browser"
)

// Defaults.
const (
	DefaultAPITimeout = 10 * time.Second
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Store selects the key-value backend ("file" or "sqlite").
	Store string

	// APITimeout bounds each remote call.
	APITimeout time.Duration

	// OpenBrowser launches the consent URL in a browser during login.
	OpenBrowser bool
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/todosync or $HOME/.config/todosync.
// Settings are read from config.yaml in that directory when present.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) load() error {
	v := viper.New()
	v.SetDefault(keyStore, StoreFile)
	v.SetDefault(keyAPITimeout, DefaultAPITimeout)
	v.SetDefault(keyOpenBrowser, false)
	v.SetConfigName(ConfigFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(c.Dir)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Missing config.yaml is not an error.
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	c.Store = v.GetString(keyStore)
	c.APITimeout = v.GetDuration(keyAPITimeout)
	c.OpenBrowser = v.GetBool(keyOpenBrowser)

	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("invalid store %q (want %s or %s)", c.Store, StoreFile, StoreSQLite)
	}
	if c.APITimeout <= 0 {
		c.APITimeout = DefaultAPITimeout
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// StorePath returns the directory of the file-backed store.
func (c *Config) StorePath() string {
	return filepath.Join(c.Dir, StoreDir)
}

// SQLitePath returns the path of the sqlite store database.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Dir, SQLiteFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// ReadOAuthClient returns the raw OAuth client credentials JSON.
func (c *Config) ReadOAuthClient() ([]byte, error) {
	data, err := os.ReadFile(c.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", OAuthClientFile, err)
	}
	return data, nil
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Account holds the credentials for one Goodreads/StoryGraph pairing. Sync
// state, sessions, and export archives are kept per account name.
type Account struct {
	Name               string `toml:"name"`
	GoodreadsEmail     string `toml:"goodreads_email"`
	GoodreadsPassword  string `toml:"goodreads_password"`
	StorygraphEmail    string `toml:"storygraph_email"`
	StorygraphPassword string `toml:"storygraph_password"`
}

// Sync contains configuration for the export/upload cycle.
type Sync struct {
	ExportTimeout      int  `toml:"export_timeout"`
	ExportPollInterval int  `toml:"export_poll_interval"`
	RequestTimeout     int  `toml:"request_timeout"`
	ArchiveExports     bool `toml:"archive_exports"`
}

// Lookup contains configuration for ISBN enrichment.
type Lookup struct {
	Enabled          bool     `toml:"enabled"`
	CachePath        string   `toml:"cache_path"`
	Sources          []string `toml:"sources"`
	RateLimitSeconds int      `toml:"rate_limit_seconds"`
	RequestTimeout   int      `toml:"request_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Sync           bool   `toml:"sync"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shelfsync.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Accounts: Goodreads/StoryGraph credential pairs, one table per account
//   - Sync: export polling and upload timing
//   - Lookup: ISBN enrichment sources, cache, and rate limiting
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Accounts      []Account     `toml:"accounts"`
	Sync          Sync          `toml:"sync"`
	Lookup        Lookup        `toml:"lookup"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shelfsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. When no file exists the
// defaults apply, which still requires account credentials from the
// environment to validate.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelfsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// StateDir returns the directory holding per-account sync state files.
func (c *Config) StateDir() string {
	return filepath.Join(c.Paths.DataDir, "state")
}

// SessionDir returns the directory holding persisted site sessions.
func (c *Config) SessionDir() string {
	return filepath.Join(c.Paths.DataDir, "sessions")
}

// ExportDir returns the directory where raw exports are archived.
func (c *Config) ExportDir() string {
	return filepath.Join(c.Paths.DataDir, "exports")
}

// Account returns the account with the given name. An empty name selects the
// sole configured account when there is exactly one.
func (c *Config) Account(name string) (Account, error) {
	if name == "" {
		if len(c.Accounts) == 1 {
			return c.Accounts[0], nil
		}
		return Account{}, fmt.Errorf("account name required when %d accounts are configured", len(c.Accounts))
	}
	for _, account := range c.Accounts {
		if account.Name == name {
			return account, nil
		}
	}
	return Account{}, fmt.Errorf("unknown account %q", name)
}

// EnsureDirectories creates the directories the sync run writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.StateDir(), c.SessionDir()}
	if c.Sync.ArchiveExports {
		dirs = append(dirs, c.ExportDir())
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAccounts()
	if err := c.normalizeLookup(); err != nil {
		return err
	}
	c.normalizeSync()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// normalizeAccounts trims every account field and, when the file configures
// no accounts at all, falls back to credentials from the environment as a
// single account named "default". This keeps the container/cron deployment
// shape working without a config file.
func (c *Config) normalizeAccounts() {
	for i := range c.Accounts {
		account := &c.Accounts[i]
		account.Name = strings.TrimSpace(account.Name)
		account.GoodreadsEmail = strings.TrimSpace(account.GoodreadsEmail)
		account.GoodreadsPassword = strings.TrimSpace(account.GoodreadsPassword)
		account.StorygraphEmail = strings.TrimSpace(account.StorygraphEmail)
		account.StorygraphPassword = strings.TrimSpace(account.StorygraphPassword)
	}

	if len(c.Accounts) > 0 {
		return
	}

	env := Account{
		Name:               "default",
		GoodreadsEmail:     strings.TrimSpace(os.Getenv("GOODREADS_EMAIL")),
		GoodreadsPassword:  strings.TrimSpace(os.Getenv("GOODREADS_PASSWORD")),
		StorygraphEmail:    strings.TrimSpace(os.Getenv("STORYGRAPH_EMAIL")),
		StorygraphPassword: strings.TrimSpace(os.Getenv("STORYGRAPH_PASSWORD")),
	}
	if env.GoodreadsEmail != "" || env.StorygraphEmail != "" {
		c.Accounts = append(c.Accounts, env)
	}
}

func (c *Config) normalizeLookup() error {
	var err error
	if strings.TrimSpace(c.Lookup.CachePath) == "" {
		c.Lookup.CachePath = filepath.Join(c.Paths.DataDir, "isbn_cache.json")
	}
	if c.Lookup.CachePath, err = expandPath(c.Lookup.CachePath); err != nil {
		return fmt.Errorf("lookup.cache_path: %w", err)
	}

	sources := make([]string, 0, len(c.Lookup.Sources))
	seen := make(map[string]struct{}, len(c.Lookup.Sources))
	for _, source := range c.Lookup.Sources {
		normalized := strings.ToLower(strings.TrimSpace(source))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		sources = append(sources, normalized)
	}
	if len(sources) == 0 {
		sources = []string{SourceOpenLibrary, SourceGoogleBooks}
	}
	c.Lookup.Sources = sources

	if c.Lookup.RateLimitSeconds < 0 {
		c.Lookup.RateLimitSeconds = 0
	}
	if c.Lookup.RequestTimeout <= 0 {
		c.Lookup.RequestTimeout = defaultLookupRequestTimeout
	}
	return nil
}

func (c *Config) normalizeSync() {
	if c.Sync.ExportTimeout <= 0 {
		c.Sync.ExportTimeout = defaultSyncExportTimeout
	}
	if c.Sync.ExportPollInterval <= 0 {
		c.Sync.ExportPollInterval = defaultSyncExportPollInterval
	}
	if c.Sync.RequestTimeout <= 0 {
		c.Sync.RequestTimeout = defaultSyncRequestTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(os.Getenv("SHELFSYNC_NTFY_TOPIC"))
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

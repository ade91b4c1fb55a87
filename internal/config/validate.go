package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAccounts(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLookup(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAccounts() error {
	if len(c.Accounts) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shelfsync/config.toml"
		}
		return fmt.Errorf("no accounts configured. Add an [[accounts]] table to %s (create with 'shelfsync config init') or set GOODREADS_EMAIL/GOODREADS_PASSWORD/STORYGRAPH_EMAIL/STORYGRAPH_PASSWORD", defaultPath)
	}

	seen := make(map[string]struct{}, len(c.Accounts))
	for i, account := range c.Accounts {
		if account.Name == "" {
			return fmt.Errorf("accounts[%d].name must be set", i)
		}
		if strings.ContainsAny(account.Name, "/\\") {
			return fmt.Errorf("accounts[%d].name must not contain path separators", i)
		}
		if _, duplicate := seen[account.Name]; duplicate {
			return fmt.Errorf("duplicate account name %q", account.Name)
		}
		seen[account.Name] = struct{}{}

		if account.GoodreadsEmail == "" || account.GoodreadsPassword == "" {
			return fmt.Errorf("account %q is missing Goodreads credentials", account.Name)
		}
		if account.StorygraphEmail == "" || account.StorygraphPassword == "" {
			return fmt.Errorf("account %q is missing StoryGraph credentials", account.Name)
		}
	}
	return nil
}

func (c *Config) validateSync() error {
	if err := ensurePositiveMap(map[string]int{
		"sync.export_timeout":       c.Sync.ExportTimeout,
		"sync.export_poll_interval": c.Sync.ExportPollInterval,
		"sync.request_timeout":      c.Sync.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Sync.ExportTimeout <= c.Sync.ExportPollInterval {
		return errors.New("sync.export_timeout must be greater than sync.export_poll_interval")
	}
	return nil
}

func (c *Config) validateLookup() error {
	if !c.Lookup.Enabled {
		return nil
	}
	if len(c.Lookup.Sources) == 0 {
		return errors.New("lookup.sources must include at least one source when lookup.enabled is true")
	}
	for _, source := range c.Lookup.Sources {
		switch source {
		case SourceOpenLibrary, SourceGoogleBooks:
		default:
			return fmt.Errorf("lookup.sources contains unknown source %q (valid: %s, %s)", source, SourceOpenLibrary, SourceGoogleBooks)
		}
	}
	if c.Lookup.RateLimitSeconds < 0 {
		return errors.New("lookup.rate_limit_seconds must be >= 0")
	}
	if c.Lookup.RequestTimeout <= 0 {
		return errors.New("lookup.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

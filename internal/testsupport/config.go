package testsupport

import (
	"path/filepath"
	"testing"

	"shelfsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and one fully-credentialed account named "primary".
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Lookup.CachePath = filepath.Join(base, "data", "isbn_cache.json")
	cfgVal.Lookup.RateLimitSeconds = 0
	cfgVal.Accounts = []config.Account{{
		Name:               "primary",
		GoodreadsEmail:     "gr@example.com",
		GoodreadsPassword:  "gr-secret",
		StorygraphEmail:    "sg@example.com",
		StorygraphPassword: "sg-secret",
	}}

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAccounts replaces the default account list.
func WithAccounts(accounts ...config.Account) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Accounts = accounts
	}
}

// WithLookupDisabled turns off ISBN enrichment for the test.
func WithLookupDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lookup.Enabled = false
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

package config

const (
	defaultDataDir                = "~/.local/share/shelfsync"
	defaultLogDir                 = "~/.local/share/shelfsync/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultSyncExportTimeout      = 300
	defaultSyncExportPollInterval = 5
	defaultSyncRequestTimeout     = 30
	defaultLookupRateLimitSeconds = 1
	defaultLookupRequestTimeout   = 15
	defaultNotifyRequestTimeout   = 10

	// SourceOpenLibrary and SourceGoogleBooks are the recognized values for
	// lookup.sources, tried in configured order.
	SourceOpenLibrary = "openlibrary"
	SourceGoogleBooks = "googlebooks"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Sync: Sync{
			ExportTimeout:      defaultSyncExportTimeout,
			ExportPollInterval: defaultSyncExportPollInterval,
			RequestTimeout:     defaultSyncRequestTimeout,
			ArchiveExports:     true,
		},
		Lookup: Lookup{
			Enabled:          true,
			Sources:          []string{SourceOpenLibrary, SourceGoogleBooks},
			RateLimitSeconds: defaultLookupRateLimitSeconds,
			RequestTimeout:   defaultLookupRequestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Sync:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

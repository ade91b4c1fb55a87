// Package session persists site login cookies between runs so repeated syncs
// skip the credential dance while the session is still valid.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"shelfsync/internal/fileutil"
	"shelfsync/internal/logging"
)

// Store keeps one cookie file per site/account pair under a directory.
// Cookies are stored as plain JSON; a corrupt or missing file just means a
// fresh login.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "session"),
	}
}

type cookieFile struct {
	SavedAt time.Time      `json:"saved_at"`
	Cookies []*http.Cookie `json:"cookies"`
}

// Path returns the session file location for a site/account pair.
func (s *Store) Path(site, account string) string {
	return filepath.Join(s.dir, fmt.Sprintf("session_%s_%s.json", site, account))
}

// Load restores saved cookies into the jar for the given base URL. A missing
// or unreadable file is not an error; it reports false and the caller logs in
// fresh.
func (s *Store) Load(site, account string, jar http.CookieJar, base *url.URL) bool {
	data, err := os.ReadFile(s.Path(site, account))
	if err != nil {
		return false
	}

	var file cookieFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("discarding unreadable session file",
			logging.String("site", site),
			logging.String(logging.FieldAccount, account),
			logging.Error(err))
		return false
	}
	if len(file.Cookies) == 0 {
		return false
	}

	jar.SetCookies(base, file.Cookies)
	s.logger.Debug("restored session",
		logging.String("site", site),
		logging.String(logging.FieldAccount, account),
		logging.Int("cookies", len(file.Cookies)))
	return true
}

// Save persists the jar's cookies for the base URL. Cookies are pinned to the
// site host with a root path so they survive the jar round trip.
func (s *Store) Save(site, account string, jar http.CookieJar, base *url.URL) error {
	cookies := jar.Cookies(base)
	for _, cookie := range cookies {
		if cookie.Domain == "" {
			cookie.Domain = base.Hostname()
		}
		if cookie.Path == "" {
			cookie.Path = "/"
		}
	}

	payload, err := json.MarshalIndent(cookieFile{SavedAt: time.Now().UTC(), Cookies: cookies}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := fileutil.WriteFileAtomic(s.Path(site, account), payload, 0o600); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Clear removes the saved session for a site/account pair.
func (s *Store) Clear(site, account string) error {
	err := os.Remove(s.Path(site, account))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

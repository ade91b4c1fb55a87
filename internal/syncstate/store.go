package syncstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shelfsync/internal/fileutil"
	"shelfsync/internal/logging"
)

// Store persists one SyncState per account under a single directory. The
// directory is injected so tests can point the store anywhere without
// touching global paths.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a state store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "syncstate"),
		now:    time.Now,
	}
}

// Path returns the backing file for an account's state record.
func (s *Store) Path(account string) string {
	return filepath.Join(s.dir, fmt.Sprintf("sync_state_%s.json", sanitizeAccount(account)))
}

// Load reads the state record for the given account. A missing record is not
// an error: it returns (nil, nil), meaning "never synced". An unreadable or
// incomplete record wraps ErrCorrupted.
func (s *Store) Load(account string) (*SyncState, error) {
	path := s.Path(account)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrCorrupted, path, err)
	}

	state, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("load state for %q: %w", account, err)
	}

	s.logger.Debug("loaded sync state",
		logging.String(logging.FieldAccount, account),
		logging.String("last_sync", state.LastSyncTimestamp),
		logging.Int("last_book_count", state.LastBookCount))
	return state, nil
}

// Save overwrites the account's state record with the supplied digest and
// count, stamping the current UTC time. The write goes through a temp file
// and rename so a concurrent reader never observes a half-written record and
// a failed write leaves the prior record intact.
func (s *Store) Save(account, contentHash string, bookCount int) error {
	if strings.TrimSpace(contentHash) == "" {
		return fmt.Errorf("%w: content hash cannot be empty", ErrWriteFailed)
	}
	if bookCount < 0 {
		return fmt.Errorf("%w: book count cannot be negative", ErrWriteFailed)
	}

	state := SyncState{
		AccountName:       account,
		LastHash:          contentHash,
		LastSyncTimestamp: s.now().UTC().Format(time.RFC3339),
		LastBookCount:     bookCount,
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal state: %w", ErrWriteFailed, err)
	}

	if err := fileutil.WriteFileAtomic(s.Path(account), data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	s.logger.Debug("saved sync state",
		logging.String(logging.FieldAccount, account),
		logging.String("last_hash", contentHash),
		logging.Int("book_count", bookCount))
	return nil
}

// Clear removes the account's state record. A missing record is not an error.
func (s *Store) Clear(account string) error {
	err := os.Remove(s.Path(account))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state for %q: %w", account, err)
	}
	return nil
}

// sanitizeAccount keeps the per-account file name predictable even when the
// account name carries characters that are unsafe in paths.
func sanitizeAccount(account string) string {
	account = strings.TrimSpace(account)
	if account == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range account {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

package syncstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorrupted tags a state record that exists but cannot be trusted:
	// unparseable JSON or a record missing required fields. Callers must not
	// collapse this into "never synced".
	ErrCorrupted = errors.New("sync state corrupted")

	// ErrWriteFailed tags a durable write that could not complete. The prior
	// record, if any, is left intact.
	ErrWriteFailed = errors.New("sync state write failed")
)

// SyncState records what was last uploaded for one account.
type SyncState struct {
	AccountName       string `json:"account_name,omitempty"`
	LastHash          string `json:"last_hash"`
	LastSyncTimestamp string `json:"last_sync_timestamp"`
	LastBookCount     int    `json:"last_book_count"`
}

// decode parses raw JSON into a SyncState and enforces the presence of the
// three required fields. Unknown fields are ignored for forward
// compatibility.
func decode(data []byte) (*SyncState, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrCorrupted, err)
	}

	var missing []string
	for _, key := range []string{"last_hash", "last_sync_timestamp", "last_book_count"} {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", ErrCorrupted, strings.Join(missing, ", "))
	}

	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrCorrupted, err)
	}
	if state.LastBookCount < 0 {
		return nil, fmt.Errorf("%w: negative book count %d", ErrCorrupted, state.LastBookCount)
	}
	return &state, nil
}

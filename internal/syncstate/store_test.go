package syncstate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), nil)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	const hash = "a3f5c9e1d7b24680a3f5c9e1d7b24680a3f5c9e1d7b24680a3f5c9e1d7b24680"
	if err := store.Save("primary", hash, 7); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	state, err := store.Load("primary")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state == nil {
		t.Fatal("Load returned nil for saved state")
	}
	if state.LastHash != hash {
		t.Errorf("LastHash = %q, want %q", state.LastHash, hash)
	}
	if state.LastBookCount != 7 {
		t.Errorf("LastBookCount = %d, want 7", state.LastBookCount)
	}
	if state.AccountName != "primary" {
		t.Errorf("AccountName = %q, want %q", state.AccountName, "primary")
	}
	if _, err := time.Parse(time.RFC3339, state.LastSyncTimestamp); err != nil {
		t.Errorf("LastSyncTimestamp %q is not RFC3339: %v", state.LastSyncTimestamp, err)
	}
}

func TestLoadAbsentReturnsNil(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Load("never_synced")
	if err != nil {
		t.Fatalf("Load of absent state should not error, got %v", err)
	}
	if state != nil {
		t.Errorf("Load of absent state should return nil, got %+v", state)
	}
}

func TestLoadUnparseableIsCorrupted(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path("broken"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := store.Load("broken")
	if err == nil {
		t.Fatal("expected error for unparseable state")
	}
	if !errors.Is(err, ErrCorrupted) {
		t.Errorf("expected ErrCorrupted, got %v", err)
	}
}

func TestLoadMissingFieldsIsCorrupted(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name    string
		payload string
	}{
		{"only_hash", `{"last_hash":"abc"}`},
		{"only_timestamp", `{"last_sync_timestamp":"2026-01-02T03:04:05Z"}`},
		{"only_count", `{"last_book_count":3}`},
		{"two_of_three", `{"last_hash":"abc","last_book_count":3}`},
		{"empty_object", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := os.WriteFile(store.Path("partial"), []byte(tc.payload), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			state, err := store.Load("partial")
			if err == nil {
				t.Fatalf("expected ErrCorrupted, got state %+v", state)
			}
			if !errors.Is(err, ErrCorrupted) {
				t.Errorf("expected ErrCorrupted, got %v", err)
			}
		})
	}
}

func TestLoadToleratesUnknownFields(t *testing.T) {
	store := newTestStore(t)
	payload := `{
		"last_hash": "abc",
		"last_sync_timestamp": "2026-01-02T03:04:05Z",
		"last_book_count": 12,
		"schema_version": 2,
		"extra": {"nested": true}
	}`
	if err := os.WriteFile(store.Path("forward"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	state, err := store.Load("forward")
	if err != nil {
		t.Fatalf("unknown fields should be ignored, got %v", err)
	}
	if state.LastHash != "abc" || state.LastBookCount != 12 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestSaveOverwritesPriorRecord(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("primary", "hash_one", 5); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save("primary", "hash_two", 6); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	state, err := store.Load("primary")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.LastHash != "hash_two" || state.LastBookCount != 6 {
		t.Errorf("expected overwritten record, got %+v", state)
	}
}

func TestSaveCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	store := NewStore(dir, nil)

	if err := store.Save("primary", "hash", 1); err != nil {
		t.Fatalf("Save should create intermediate directories: %v", err)
	}
	if _, err := os.Stat(store.Path("primary")); err != nil {
		t.Errorf("state file missing after Save: %v", err)
	}
}

func TestSaveRejectsEmptyHash(t *testing.T) {
	store := newTestStore(t)
	err := store.Save("primary", "  ", 1)
	if err == nil {
		t.Fatal("expected error for empty hash")
	}
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("expected ErrWriteFailed, got %v", err)
	}
}

func TestSaveRejectsNegativeCount(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("primary", "hash", -1); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("expected ErrWriteFailed for negative count, got %v", err)
	}
}

func TestPerAccountIsolation(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("alice", "hash_alice", 10); err != nil {
		t.Fatalf("Save alice failed: %v", err)
	}
	// Corrupt bob's record; alice must be unaffected.
	if err := os.WriteFile(store.Path("bob"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := store.Load("bob"); !errors.Is(err, ErrCorrupted) {
		t.Errorf("expected bob corrupted, got %v", err)
	}
	state, err := store.Load("alice")
	if err != nil {
		t.Fatalf("alice should load cleanly: %v", err)
	}
	if state.LastHash != "hash_alice" {
		t.Errorf("alice state = %+v", state)
	}
}

func TestSaveLeavesNoTempFileBehind(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("primary", "hash", 2); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(store.Path("primary") + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp file should not remain after Save, stat err = %v", err)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("primary", "hash", 2); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear("primary"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	state, err := store.Load("primary")
	if err != nil || state != nil {
		t.Errorf("expected absent state after Clear, got state=%+v err=%v", state, err)
	}
	// Clearing again is a no-op.
	if err := store.Clear("primary"); err != nil {
		t.Errorf("Clear of absent state should not error: %v", err)
	}
}

func TestSanitizeAccountName(t *testing.T) {
	store := newTestStore(t)
	path := store.Path("we/ird acc:ount")
	base := filepath.Base(path)
	if base != "sync_state_we_ird_acc_ount.json" {
		t.Errorf("sanitized file name = %q", base)
	}
}

func TestSaveTimestampIsUTC(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time {
		return time.Date(2026, 8, 31, 15, 4, 5, 0, time.FixedZone("PDT", -7*3600))
	}

	if err := store.Save("primary", "hash", 3); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	state, err := store.Load("primary")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.LastSyncTimestamp != "2026-08-31T22:04:05Z" {
		t.Errorf("timestamp not normalized to UTC: %q", state.LastSyncTimestamp)
	}
}

package isbncache

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(filepath.Join(t.TempDir(), "isbn_cache.json"), nil)
}

func TestKeyNormalization(t *testing.T) {
	cases := []struct {
		title, author string
		want          string
	}{
		{"Dune", "Frank Herbert", "dune|frank herbert"},
		{"  Dune  ", "  FRANK HERBERT ", "dune|frank herbert"},
		{"dune", "frank herbert", "dune|frank herbert"},
	}
	for _, tc := range cases {
		if got := Key(tc.title, tc.author); got != tc.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tc.title, tc.author, got, tc.want)
		}
	}
}

func TestKeyCaseFoldsEquivalentInputs(t *testing.T) {
	// Case variants of the same title/author must collide on one entry.
	if Key("The Trial", "Franz KAFKA") != Key("the trial", "franz kafka") {
		t.Error("case variants should produce identical keys")
	}
}

func TestStoreFoundAndGet(t *testing.T) {
	cache := newTestCache(t)
	key := Key("Dune", "Frank Herbert")

	if err := cache.StoreFound(key, "9780441013593"); err != nil {
		t.Fatalf("StoreFound failed: %v", err)
	}

	isbn, found, attempted := cache.Get(key)
	if !attempted || !found {
		t.Fatalf("Get = (%q, %v, %v), want found entry", isbn, found, attempted)
	}
	if isbn != "9780441013593" {
		t.Errorf("isbn = %q", isbn)
	}
}

func TestNegativeEntryDistinctFromAbsent(t *testing.T) {
	cache := newTestCache(t)
	key := Key("Unknown Zine", "Nobody")

	// Never attempted.
	if _, found, attempted := cache.Get(key); found || attempted {
		t.Fatal("fresh key should be neither found nor attempted")
	}

	if err := cache.StoreMiss(key); err != nil {
		t.Fatalf("StoreMiss failed: %v", err)
	}

	// Attempted but not found: lookups must short-circuit here.
	isbn, found, attempted := cache.Get(key)
	if found {
		t.Errorf("negative entry should not report found, got %q", isbn)
	}
	if !attempted {
		t.Error("negative entry must report attempted")
	}
}

func TestPersistenceAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isbn_cache.json")

	first := NewCache(path, nil)
	if err := first.StoreFound(Key("Dune", "Frank Herbert"), "9780441013593"); err != nil {
		t.Fatalf("StoreFound failed: %v", err)
	}
	if err := first.StoreMiss(Key("Unknown", "Nobody")); err != nil {
		t.Fatalf("StoreMiss failed: %v", err)
	}

	second := NewCache(path, nil)
	isbn, found, _ := second.Get(Key("Dune", "Frank Herbert"))
	if !found || isbn != "9780441013593" {
		t.Errorf("positive entry should persist, got (%q, %v)", isbn, found)
	}
	if _, found, attempted := second.Get(Key("Unknown", "Nobody")); found || !attempted {
		t.Error("negative entry should persist as attempted-not-found")
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isbn_cache.json")
	if err := os.WriteFile(path, []byte("not valid json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cache := NewCache(path, nil)
	if cache.Count() != 0 {
		t.Errorf("corrupt cache should start empty, got %d entries", cache.Count())
	}

	// And it must be usable afterwards.
	if err := cache.StoreFound("a|b", "9780441013593"); err != nil {
		t.Errorf("StoreFound after corrupt load failed: %v", err)
	}
}

func TestSummary(t *testing.T) {
	cache := newTestCache(t)
	if err := cache.StoreFound("a|b", "9780441013593"); err != nil {
		t.Fatalf("StoreFound failed: %v", err)
	}
	if err := cache.StoreFound("c|d", "9780306406157"); err != nil {
		t.Fatalf("StoreFound failed: %v", err)
	}
	if err := cache.StoreMiss("e|f"); err != nil {
		t.Fatalf("StoreMiss failed: %v", err)
	}

	stats := cache.Summary()
	if stats.Entries != 3 || stats.Resolved != 2 || stats.Misses != 1 {
		t.Errorf("Summary = %+v", stats)
	}
}

func TestRemoveAndClear(t *testing.T) {
	cache := newTestCache(t)
	if err := cache.StoreFound("a|b", "9780441013593"); err != nil {
		t.Fatalf("StoreFound failed: %v", err)
	}

	if err := cache.Remove("a|b"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, _, attempted := cache.Get("a|b"); attempted {
		t.Error("removed key should read as never attempted")
	}
	if err := cache.Remove("a|b"); err == nil {
		t.Error("Remove of absent key should error")
	}

	if err := cache.StoreMiss("x|y"); err != nil {
		t.Fatalf("StoreMiss failed: %v", err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cache.Count() != 0 {
		t.Errorf("Count after Clear = %d", cache.Count())
	}
}

func TestEmptyPathIsNoop(t *testing.T) {
	cache := NewCache("", nil)

	if err := cache.StoreFound("a|b", "9780441013593"); err != nil {
		t.Errorf("StoreFound with empty path should not error: %v", err)
	}
	if _, found, attempted := cache.Get("a|b"); found || attempted {
		t.Error("empty-path cache should never report entries")
	}
	if cache.Count() != 0 {
		t.Errorf("Count = %d", cache.Count())
	}
}

func TestStoreValidation(t *testing.T) {
	cache := newTestCache(t)
	if err := cache.StoreFound("", "9780441013593"); err == nil {
		t.Error("StoreFound should reject empty key")
	}
	if err := cache.StoreFound("a|b", "  "); err == nil {
		t.Error("StoreFound should reject empty isbn")
	}
	if err := cache.StoreMiss(""); err == nil {
		t.Error("StoreMiss should reject empty key")
	}
}

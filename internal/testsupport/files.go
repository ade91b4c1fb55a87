package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleExportCSV is a minimal Goodreads-format export used across tests.
const SampleExportCSV = "Title,Author,ISBN,ISBN13\nDune,Frank Herbert,\"=\"\"0441013597\"\"\",\"=\"\"9780441013593\"\"\"\n"

// WriteExport writes a CSV export file and returns its path.
func WriteExport(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

package library

import (
	"fmt"
	"os"
)

// expectedColumns are the Goodreads columns whose presence marks a plausible
// export. At least one must appear in the header.
var expectedColumns = []string{ColTitle, ColAuthor, ColISBN}

// Validate checks the structural integrity of an export file: it must exist,
// be non-empty, parse as CSV, contain at least one data row, and carry the
// expected columns.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalid, path)
	}

	records, err := ReadFile(path)
	if err != nil {
		return err
	}
	if err := ValidateRecords(records); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ValidateRecords applies the structural checks to already-parsed records:
// at least one data row and the expected columns present.
func ValidateRecords(records *Records) error {
	if records.Count() == 0 {
		return fmt.Errorf("%w: no data rows", ErrInvalid)
	}

	headerSet := make(map[string]struct{}, len(records.Header))
	for _, column := range records.Header {
		headerSet[column] = struct{}{}
	}
	for _, column := range expectedColumns {
		if _, ok := headerSet[column]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: missing expected columns", ErrInvalid)
}

// CountFile returns the number of catalog entries in the export at path.
func CountFile(path string) (int, error) {
	records, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	return records.Count(), nil
}

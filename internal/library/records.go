package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrInvalid tags a library export that fails structural validation.
var ErrInvalid = errors.New("invalid library export")

// Column names in the Goodreads export format.
const (
	ColTitle  = "Title"
	ColAuthor = "Author"
	ColISBN   = "ISBN"
	ColISBN13 = "ISBN13"
)

// Row is one catalog entry keyed by column name. Unknown columns survive a
// read/write round trip untouched.
type Row map[string]string

// Get returns the trimmed value of a column.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// Records is a parsed library export: the header in original order plus one
// row per catalog entry.
type Records struct {
	Header []string
	Rows   []Row
}

// Count returns the number of catalog entries.
func (r *Records) Count() int {
	return len(r.Rows)
}

// Read parses a Goodreads-format CSV stream.
func Read(reader io.Reader) (*Records, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header row", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: read header: %w", ErrInvalid, err)
	}

	records := &Records{Header: header}
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row %d: %w", ErrInvalid, len(records.Rows)+2, err)
		}

		row := make(Row, len(header))
		for i, column := range header {
			if i < len(fields) {
				row[column] = fields[i]
			} else {
				row[column] = ""
			}
		}
		records.Rows = append(records.Rows, row)
	}
	return records, nil
}

// ReadFile parses the CSV file at path.
func ReadFile(path string) (*Records, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export %s: %w", path, err)
	}
	defer file.Close()
	return Read(file)
}

// Write serializes the records back to CSV, preserving header order.
func (r *Records) Write(writer io.Writer) error {
	cw := csv.NewWriter(writer)
	if err := cw.Write(r.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range r.Rows {
		fields := make([]string, len(r.Header))
		for i, column := range r.Header {
			fields[i] = row[column]
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile serializes the records to the file at path.
func (r *Records) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Bytes serializes the records to an in-memory CSV payload, the form the
// fingerprint and uploader consume.
func (r *Records) Bytes() ([]byte, error) {
	var b strings.Builder
	if err := r.Write(&b); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// WrapISBNLiteral encodes an ISBN in the spreadsheet-proof quoted idiom the
// destination site expects: ="9780441013593". Without the wrapper,
// spreadsheet tools strip leading zeros and mangle long digit strings.
func WrapISBNLiteral(value string) string {
	return `="` + value + `"`
}

// UnwrapISBNLiteral strips the quoted idiom, returning the bare digits.
func UnwrapISBNLiteral(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "=")
	value = strings.Trim(value, `"`)
	return strings.TrimSpace(value)
}

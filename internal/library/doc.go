// Package library models a Goodreads CSV export: parsing and serialization
// that preserve unknown columns, structural validation, and the enrichment
// pass that fills missing ISBN13 values before upload.
package library

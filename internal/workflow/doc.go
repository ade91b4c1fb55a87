// Package workflow orchestrates the per-account sync pipeline: export the
// Goodreads library, validate and enrich the CSV, fingerprint the result,
// compare it against the previous run's state, and upload to StoryGraph only
// when the library actually changed.
package workflow

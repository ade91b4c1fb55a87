// Package config loads, normalizes, and validates shelfsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GOODREADS_EMAIL. The Config type centralizes every knob the CLI needs, so
// downstream code receives sanitized paths, canonical log formats, and clear
// validation errors.
package config

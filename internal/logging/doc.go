// Package logging builds the slog loggers used across shelfsync.
//
// It provides a human-oriented console handler and a JSON handler, shared
// attribute helpers, and component loggers that tag every record with the
// emitting subsystem. Output can fan out to stdout/stderr and an append-only
// log file in one pass.
package logging

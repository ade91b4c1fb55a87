// Package isbncache provides a local persistent cache that maps normalized
// title|author keys to resolved ISBN-13s.
//
// The cache is shared across all accounts within a process run: a book's
// ISBN does not depend on which account looked it up. Negative results are
// cached explicitly (a null value) so an exhausted lookup is never repeated.
//
// # Storage
//
// The cache is stored as a single JSON object at a configurable path under
// the state directory. The format is human-readable and easy to inspect or
// edit manually:
//
//	{
//	  "dune|frank herbert": "9780441013593",
//	  "some obscure zine|unknown": null
//	}
//
// Writes are write-through: every mutation is persisted via a temp file and
// atomic rename before the mutating call returns.
package isbncache

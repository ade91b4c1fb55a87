package library

import (
	"context"
	"log/slog"
	"time"

	"shelfsync/internal/isbn"
	"shelfsync/internal/logging"
)

// ISBNResolver is the slice of the lookup resolver the enricher needs.
type ISBNResolver interface {
	CachedOnly(title, author string) bool
	LookupISBN(ctx context.Context, title, author string) (string, bool)
}

// Stats summarizes one enrichment pass.
type Stats struct {
	Total       int
	MissingISBN int
	Found       int
	CacheHits   int
	APILookups  int
}

// Enricher fills missing ISBN13 values in an export. Entries that already
// carry a usable identifier are normalized in place; the rest go through the
// resolver, with a courtesy delay after each lookup that actually left the
// process.
type Enricher struct {
	resolver ISBNResolver
	delay    time.Duration
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration)
}

// NewEnricher builds an enricher. delay is the pause inserted after each
// fresh external lookup; cache hits never pay it.
func NewEnricher(resolver ISBNResolver, delay time.Duration, logger *slog.Logger) *Enricher {
	return &Enricher{
		resolver: resolver,
		delay:    delay,
		logger:   logging.NewComponentLogger(logger, "enrich"),
		sleep:    sleepContext,
	}
}

// Enrich walks the records and writes resolved identifiers into the ISBN13
// column as spreadsheet-proof literals. Rows the resolver cannot answer are
// left untouched. The pass stops early only on context cancellation.
func (e *Enricher) Enrich(ctx context.Context, records *Records) (Stats, error) {
	stats := Stats{Total: records.Count()}

	for _, row := range records.Rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if existing := normalizeExisting(row); existing != "" {
			row[ColISBN13] = WrapISBNLiteral(existing)
			continue
		}

		stats.MissingISBN++

		title := row.Get(ColTitle)
		author := row.Get(ColAuthor)
		if title == "" {
			continue
		}

		cached := e.resolver.CachedOnly(title, author)
		resolved, ok := e.resolver.LookupISBN(ctx, title, author)
		if cached {
			stats.CacheHits++
		} else {
			stats.APILookups++
			e.sleep(ctx, e.delay)
		}

		if !ok {
			e.logger.Debug("no isbn for entry",
				logging.String("title", title),
				logging.String("author", author))
			continue
		}

		stats.Found++
		row[ColISBN13] = WrapISBNLiteral(resolved)
	}

	e.logger.Info("enrichment pass complete",
		logging.Int("total", stats.Total),
		logging.Int("missing", stats.MissingISBN),
		logging.Int("found", stats.Found),
		logging.Int("cache_hits", stats.CacheHits),
		logging.Int("api_lookups", stats.APILookups))
	return stats, nil
}

// normalizeExisting returns the entry's own ISBN-13 if it already has a
// usable identifier, converting an ISBN-10 when that is all the export
// carries. Returns "" when the row needs a lookup.
func normalizeExisting(row Row) string {
	if raw := UnwrapISBNLiteral(row.Get(ColISBN13)); isbn.IsISBN13(raw) {
		return isbn.Normalize(raw)
	}
	raw := UnwrapISBNLiteral(row.Get(ColISBN))
	if isbn.IsISBN13(raw) {
		return isbn.Normalize(raw)
	}
	if isbn.IsISBN10(raw) {
		return isbn.ConvertISBN10To13(raw)
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

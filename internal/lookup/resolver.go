package lookup

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"shelfsync/internal/isbn"
	"shelfsync/internal/isbncache"
	"shelfsync/internal/logging"
)

// seriesSuffix matches a trailing parenthetical like "(Dune Chronicles, #1)"
// that Goodreads appends to titles. The annotation is not part of the book's
// identity for search purposes.
var seriesSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// Resolver answers "what is this book's ISBN-13" by consulting the
// persistent cache first and falling back through the configured sources in
// priority order. The resolver owns the cache for its lifetime; construction
// loads it once, so there is no hidden first-call latency.
type Resolver struct {
	cache   *isbncache.Cache
	sources []Source
	delay   time.Duration
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration)
}

// NewResolver builds a resolver over the given sources. delay is the fixed
// courtesy pause inserted between consecutive source queries.
func NewResolver(cache *isbncache.Cache, delay time.Duration, logger *slog.Logger, sources ...Source) *Resolver {
	return &Resolver{
		cache:   cache,
		sources: sources,
		delay:   delay,
		logger:  logging.NewComponentLogger(logger, "lookup"),
		sleep:   sleepContext,
	}
}

// Cache exposes the underlying cache for CLI inspection commands.
func (r *Resolver) Cache() *isbncache.Cache {
	return r.cache
}

// CachedOnly reports whether a lookup for the pair would be answered from
// the cache without any external call.
func (r *Resolver) CachedOnly(title, author string) bool {
	_, _, attempted := r.cache.Get(isbncache.Key(title, author))
	return attempted
}

// LookupISBN resolves an ISBN-13 for the title/author pair.
//
// Cached entries (including negative ones) are returned immediately with no
// external calls and no rate-limit delay. On a cache miss each source is
// queried in order with the courtesy delay between them; the first usable
// candidate wins and is cached. If every source comes up empty, a negative
// entry is cached so the next call short-circuits. Source failures never
// propagate: they degrade to "no candidate from that source".
func (r *Resolver) LookupISBN(ctx context.Context, title, author string) (string, bool) {
	key := isbncache.Key(title, author)
	if cached, found, attempted := r.cache.Get(key); attempted {
		return cached, found
	}

	searchTitle := strings.TrimSpace(seriesSuffix.ReplaceAllString(title, ""))

	for i, source := range r.sources {
		if i > 0 {
			r.sleep(ctx, r.delay)
		}

		candidates, err := source.Search(ctx, searchTitle, author)
		if err != nil {
			// Transport and parse failures are swallowed here by design of
			// the lookup contract: the next source gets its turn.
			r.logger.Debug("source lookup failed",
				logging.String("source", source.Name()),
				logging.String("title", searchTitle),
				logging.Error(err))
			continue
		}

		if found, ok := pickISBN(candidates); ok {
			r.logger.Debug("resolved isbn",
				logging.String("source", source.Name()),
				logging.String("title", searchTitle),
				logging.String("isbn", found))
			if err := r.cache.StoreFound(key, found); err != nil {
				r.logger.Warn("failed to persist isbn cache entry", logging.Error(err))
			}
			return found, true
		}
	}

	r.logger.Debug("no isbn found",
		logging.String("title", title),
		logging.String("author", author))
	if err := r.cache.StoreMiss(key); err != nil {
		r.logger.Warn("failed to persist negative cache entry", logging.Error(err))
	}
	return "", false
}

// pickISBN applies the preference order to search candidates: an ISBN-13
// with the canonical 978 prefix, then any ISBN-13, then the first ISBN-10
// converted to 13-character form.
func pickISBN(candidates []Candidate) (string, bool) {
	for _, candidate := range candidates {
		for _, raw := range candidate.ISBNs {
			if isbn.IsISBN13(raw) && isbn.HasBookPrefix(raw) {
				return isbn.Normalize(raw), true
			}
		}
		for _, raw := range candidate.ISBNs {
			if isbn.IsISBN13(raw) {
				return isbn.Normalize(raw), true
			}
		}
		for _, raw := range candidate.ISBNs {
			if isbn.IsISBN10(raw) {
				return isbn.ConvertISBN10To13(raw), true
			}
		}
	}
	return "", false
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

// Package lookup resolves missing ISBNs through a chain of external search
// sources backed by the persistent cache in isbncache.
//
// Sources are queried in fixed priority order (Open Library, then Google
// Books) with a courtesy delay between consecutive queries. A source failure
// of any kind is absorbed and treated as "no candidate"; only exhaustion of
// every source produces a cached negative result. Cache hits, positive or
// negative, never touch the network and never pay the delay.
package lookup

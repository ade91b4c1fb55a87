package lookup

import "context"

// Candidate is one search match from a lookup source. A candidate may carry
// several identifiers in 10- or 13-character form.
type Candidate struct {
	Title   string
	Authors []string
	ISBNs   []string
}

// Source is a keyword-search backend that can propose ISBN candidates for a
// title/author pair. Sources are queried in fixed priority order by the
// Resolver; any error a source returns is absorbed and treated as "no
// candidate from this source".
type Source interface {
	Name() string
	Search(ctx context.Context, title, author string) ([]Candidate, error)
}

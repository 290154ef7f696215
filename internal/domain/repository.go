package domain

import "context"

// Connector establishes the process-wide storage connection.
// Connect is idempotent: once it succeeds, later calls return nil without
// reconnecting. A failed attempt may be retried by calling Connect again.
type Connector interface {
	Connect(ctx context.Context) error
}

// SearchCache defines the persisted query -> result-set collection
type SearchCache interface {
	Connector

	// Lookup returns the newest entry whose query matches (see MatchesQuery),
	// or nil when nothing matches.
	Lookup(ctx context.Context, query string) (*SearchResultEntry, error)

	// Replace deletes every entry whose query equals query exactly and then
	// inserts a fresh entry. The two steps are not atomic across processes.
	Replace(ctx context.Context, query string, results []Product) error
}

// Aggregator fetches live product listings for a query
type Aggregator interface {
	FetchListings(ctx context.Context, query string) ([]Product, error)
}

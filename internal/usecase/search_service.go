package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/logger"
	"github.com/productlens/backend/internal/metrics"
)

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	DefaultQuery string
	// NewSearchesEnabled gates the miss path. When false, a cache miss is
	// answered with ErrNewSearchesDisabled and the aggregator is never called.
	NewSearchesEnabled bool
}

// SearchService resolves product searches from the cache, falling back to the
// aggregator on a miss and persisting what it fetched
type SearchService struct {
	cache        domain.SearchCache
	aggregator   domain.Aggregator
	log          logger.Logger
	metrics      *metrics.Metrics
	defaultQuery string
	newSearches  bool
}

// NewSearchService creates a new search service with dependencies.
// log and m may be nil.
func NewSearchService(
	cache domain.SearchCache,
	aggregator domain.Aggregator,
	config SearchServiceConfig,
	log logger.Logger,
	m *metrics.Metrics,
) *SearchService {
	if log == nil {
		log = logger.NewNop()
	}

	defaultQuery := config.DefaultQuery
	if defaultQuery == "" {
		defaultQuery = DefaultQuery
	}

	return &SearchService{
		cache:        cache,
		aggregator:   aggregator,
		log:          log,
		metrics:      m,
		defaultQuery: defaultQuery,
		newSearches:  config.NewSearchesEnabled,
	}
}

// DefaultQuery returns the query used when a request names none
func (s *SearchService) DefaultQuery() string {
	return s.defaultQuery
}

// Search looks up product listings for query.
// Flow: connect -> cache lookup -> [hit: sort] | [miss: fetch -> sort -> replace]
// Cached results are re-sorted on every hit but never rewritten.
func (s *SearchService) Search(ctx context.Context, query string) (*domain.SearchOutcome, error) {
	if query == "" {
		query = s.defaultQuery
	}

	if err := s.cache.Connect(ctx); err != nil {
		return nil, s.fail(query, wrapKind(domain.ErrStorageConnection, err))
	}

	entry, err := s.cache.Lookup(ctx, query)
	if err != nil {
		return nil, s.fail(query, wrapKind(domain.ErrCacheRead, err))
	}

	if entry != nil {
		s.log.Debug("cache hit", logger.String("query", query), logger.String("entry_query", entry.Query))
		s.metrics.RecordSearch(domain.SourceCache)
		return &domain.SearchOutcome{
			Query:    query,
			Products: SortResults(entry.Results),
			Source:   domain.SourceCache,
		}, nil
	}

	if !s.newSearches {
		s.log.Info("cache miss while new searches are disabled", logger.String("query", query))
		s.metrics.RecordSearch("disabled")
		return nil, domain.ErrNewSearchesDisabled
	}

	start := time.Now()
	listings, err := s.aggregator.FetchListings(ctx, query)
	s.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return nil, s.fail(query, wrapKind(domain.ErrAggregatorFetch, err))
	}

	sorted := SortResults(listings)

	if err := s.cache.Replace(ctx, query, sorted); err != nil {
		return nil, s.fail(query, wrapKind(domain.ErrCacheWrite, err))
	}

	s.log.Info("cached new search",
		logger.String("query", query),
		logger.Int("results", len(sorted)),
		logger.Duration("fetch", time.Since(start)))
	s.metrics.RecordSearch(domain.SourceNew)

	return &domain.SearchOutcome{
		Query:    query,
		Products: sorted,
		Source:   domain.SourceNew,
	}, nil
}

// fail logs err with its failure kind and counts it
func (s *SearchService) fail(query string, err error) error {
	kind := domain.ErrorKind(err)
	s.log.Error("search failed",
		logger.String("query", query),
		logger.String("kind", kind),
		logger.Error(err))
	s.metrics.RecordFailure(kind)
	s.metrics.RecordSearch(domain.SourceError)
	return err
}

// wrapKind tags err with sentinel unless it already carries it
func wrapKind(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

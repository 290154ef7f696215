package domain

import "errors"

var (
	// ErrStorageConnection is returned when the cache storage cannot be reached
	ErrStorageConnection = errors.New("storage connection failed")

	// ErrCacheRead is returned when a cache lookup fails
	ErrCacheRead = errors.New("cache read failed")

	// ErrAggregatorFetch is returned when the listing aggregator request fails
	ErrAggregatorFetch = errors.New("aggregator fetch failed")

	// ErrCacheWrite is returned when persisting a result set fails
	ErrCacheWrite = errors.New("cache write failed")

	// ErrNewSearchesDisabled is returned on a cache miss while live fetches are turned off
	ErrNewSearchesDisabled = errors.New("new searches are disabled")

	// ErrNotConnected is returned by stores used before Connect succeeded
	ErrNotConnected = errors.New("storage not connected")

	// ErrInvalidListing is returned when an aggregator listing cannot be turned into a Product
	ErrInvalidListing = errors.New("invalid listing")
)

// Failure kinds used for logging and metrics. They are never sent to clients.
const (
	KindStorageConnection = "storage_connection"
	KindCacheRead         = "cache_read"
	KindAggregatorFetch   = "aggregator_fetch"
	KindCacheWrite        = "cache_write"
	KindInternal          = "internal"
)

// ErrorKind maps an orchestration error to its failure kind
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrStorageConnection):
		return KindStorageConnection
	case errors.Is(err, ErrCacheRead):
		return KindCacheRead
	case errors.Is(err, ErrAggregatorFetch):
		return KindAggregatorFetch
	case errors.Is(err, ErrCacheWrite):
		return KindCacheWrite
	default:
		return KindInternal
	}
}

// Package redisstore keeps search result entries in a single Redis hash,
// keyed by a random entry id, so several service instances can share one cache.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/logger"
)

const defaultKey = "productlens:searchresults"

// Store is a SearchCache backed by a Redis hash of entry id -> JSON entry
type Store struct {
	client *redis.Client
	key    string
	log    logger.Logger

	mu        sync.Mutex
	connected bool

	now func() time.Time
}

// New wraps an existing client. key defaults to "productlens:searchresults".
func New(client *redis.Client, key string, log logger.Logger) *Store {
	if key == "" {
		key = defaultKey
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{client: client, key: key, log: log, now: time.Now}
}

// NewFromURL parses a redis:// URL and builds a store around a new client
func NewFromURL(rawURL, key string, log logger.Logger) (*Store, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = -1 // no command retries
	return New(redis.NewClient(opts), key, log), nil
}

// Connect pings Redis once; after the first success it is a no-op
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping redis: %w", domain.ErrStorageConnection, err)
	}
	s.connected = true
	s.log.Info("connected to redis", logger.String("key", s.key))
	return nil
}

// Close releases the underlying client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

type storedEntry struct {
	id    string
	entry domain.SearchResultEntry
}

func (s *Store) loadAll(ctx context.Context) ([]storedEntry, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]storedEntry, 0, len(raw))
	for id, data := range raw {
		var e domain.SearchResultEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			s.log.Warn("skipping undecodable cache entry", logger.String("id", id), logger.Error(err))
			continue
		}
		entries = append(entries, storedEntry{id: id, entry: e})
	}
	return entries, nil
}

// Lookup scans the hash and returns the newest matching entry, or nil
func (s *Store) Lookup(ctx context.Context, query string) (*domain.SearchResultEntry, error) {
	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	var best *domain.SearchResultEntry
	for i := range entries {
		e := &entries[i].entry
		if !domain.MatchesQuery(e.Query, query) {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = e
		}
	}
	return best, nil
}

// Replace removes entries whose query equals query and stores a new one.
// Delete and insert go out in one MULTI block, but the read that finds the
// stale ids happens before it, so a concurrent replace can still leave a duplicate.
func (s *Store) Replace(ctx context.Context, query string, results []domain.Product) error {
	entries, err := s.loadAll(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}

	var stale []string
	for _, e := range entries {
		if e.entry.Query == query {
			stale = append(stale, e.id)
		}
	}

	if results == nil {
		results = []domain.Product{}
	}
	data, err := json.Marshal(domain.SearchResultEntry{
		Query:     query,
		Results:   results,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(stale) > 0 {
			pipe.HDel(ctx, s.key, stale...)
		}
		pipe.HSet(ctx, s.key, uuid.NewString(), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace entry for %q: %w", query, err)
	}
	return nil
}

// Package mongostore persists search result entries in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/logger"
)

const (
	defaultConnectTimeout = 10 * time.Second
	fieldQuery            = "query"
	fieldCreatedAt        = "createdAt"
)

var (
	connectMongo = func(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, opts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
	disconnectMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Disconnect(ctx)
	}
)

// Config holds the MongoDB connection settings
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store is a SearchCache backed by one MongoDB collection with documents of
// shape {query, results, createdAt}. No uniqueness index is created.
type Store struct {
	cfg Config
	log logger.Logger

	mu     sync.Mutex
	client *mongo.Client
	coll   *mongo.Collection

	now func() time.Time
}

// New creates an unconnected store. Call Connect before use.
func New(cfg Config, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{cfg: cfg, log: log, now: time.Now}
}

// newWithCollection wires a store to an existing collection
func newWithCollection(coll *mongo.Collection) *Store {
	return &Store{log: logger.NewNop(), coll: coll, now: time.Now}
}

// Connect establishes the shared client once. Later calls return immediately;
// a failed attempt leaves the store unconnected so the next call retries.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coll != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	// a failed read or write fails the request; the driver must not retry it
	opts := options.Client().ApplyURI(s.cfg.URI).SetRetryReads(false).SetRetryWrites(false)
	cli, err := connectMongo(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: connect: %w", domain.ErrStorageConnection, err)
	}
	if err := pingMongo(ctx, cli); err != nil {
		_ = disconnectMongo(context.Background(), cli)
		return fmt.Errorf("%w: ping: %w", domain.ErrStorageConnection, err)
	}

	s.client = cli
	s.coll = cli.Database(s.cfg.Database).Collection(s.cfg.Collection)
	s.log.Info("connected to mongodb",
		logger.String("database", s.cfg.Database),
		logger.String("collection", s.cfg.Collection))
	return nil
}

// Close disconnects the client if one was established
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := disconnectMongo(ctx, s.client)
	s.client = nil
	s.coll = nil
	return err
}

func (s *Store) collection() (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coll == nil {
		return nil, domain.ErrNotConnected
	}
	return s.coll, nil
}

// lookupFilter matches documents whose query contains the lookup query, or is
// contained in it, ignoring case. The lookup query is escaped, never run as a pattern.
func lookupFilter(query string) bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{fieldQuery: primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}},
			bson.M{"$expr": bson.M{
				"$and": bson.A{
					bson.M{"$gt": bson.A{bson.M{"$strLenCP": "$" + fieldQuery}, 0}},
					bson.M{"$gte": bson.A{
						bson.M{"$indexOfCP": bson.A{strings.ToLower(query), bson.M{"$toLower": "$" + fieldQuery}}},
						0,
					}},
				},
			}},
		},
	}
}

// Lookup returns the newest matching entry, or nil when none matches
func (s *Store) Lookup(ctx context.Context, query string) (*domain.SearchResultEntry, error) {
	if query == "" {
		return nil, nil
	}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}

	var entry domain.SearchResultEntry
	err = coll.FindOne(ctx,
		lookupFilter(query),
		options.FindOne().SetSort(bson.D{bson.E{Key: fieldCreatedAt, Value: -1}}),
	).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find entry for %q: %w", query, err)
	}
	return &entry, nil
}

// Replace deletes every document whose query equals query, then inserts a new
// one. The pair is not wrapped in a transaction: standalone servers do not
// support them, and concurrent replaces for one query may leave a duplicate.
func (s *Store) Replace(ctx context.Context, query string, results []domain.Product) error {
	coll, err := s.collection()
	if err != nil {
		return err
	}

	if _, err := coll.DeleteMany(ctx, bson.M{fieldQuery: query}); err != nil {
		return fmt.Errorf("delete entries for %q: %w", query, err)
	}

	if results == nil {
		results = []domain.Product{}
	}
	entry := domain.SearchResultEntry{
		Query:     query,
		Results:   results,
		CreatedAt: s.now().UTC(),
	}
	if _, err := coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert entry for %q: %w", query, err)
	}
	return nil
}

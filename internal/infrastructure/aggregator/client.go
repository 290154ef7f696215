package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/logger"
	"golang.org/x/time/rate"
)

const (
	defaultEngine      = "google_shopping"
	defaultCurrency    = "USD"
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 1 // retries are opt-in
	logBodyLimit       = 2048
)

// Config holds the listing aggregator settings
type Config struct {
	APIKey          string
	BaseURL         string
	Engine          string
	Currency        string
	RequestsPerHour int
	Timeout         time.Duration
	MaxAttempts     int
}

// Client fetches shopping listings from a SerpApi-compatible aggregator
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	engine      string
	currency    string
	maxAttempts int
	rateLimiter *rate.Limiter
	log         logger.Logger
	debug       bool
}

// NewClient creates a new aggregator client
func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.Engine == "" {
		cfg.Engine = defaultEngine
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = 1000
	}
	if log == nil {
		log = logger.NewNop()
	}

	// rate.Limit is per second; burst of 10 absorbs short spikes
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerHour)/3600.0), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		engine:      cfg.Engine,
		currency:    cfg.Currency,
		maxAttempts: cfg.MaxAttempts,
		rateLimiter: limiter,
		log:         log,
	}
}

// SetDebug enables logging of raw response bodies
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before the next attempt: 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func (c *Client) searchURL(query string) string {
	params := url.Values{}
	params.Set("engine", c.engine)
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	return fmt.Sprintf("%s/search.json?%s", c.baseURL, params.Encode())
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ProductLens/1.0")

	return c.httpClient.Do(req)
}

// FetchListings returns the aggregator's listings for query.
// Transient failures (transport errors, non-200 statuses) are retried with
// exponential backoff up to the configured number of attempts.
func (c *Client) FetchListings(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrAggregatorFetch)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: api key is not configured", domain.ErrAggregatorFetch)
	}

	reqURL := c.searchURL(query)
	c.log.Debug("aggregator fetch", logger.String("query", query), logger.String("engine", c.engine))

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, exponentialBackoff(attempt-1)); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrAggregatorFetch, err)
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrAggregatorFetch, err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			c.log.Warn("aggregator request error",
				logger.Int("attempt", attempt), logger.String("query", query), logger.Error(err))
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %w", err)
			continue
		}

		if c.debug {
			c.log.Debug("aggregator response",
				logger.Int("status", resp.StatusCode), logger.String("body", truncate(body, logBodyLimit)))
		}

		if resp.StatusCode != http.StatusOK {
			c.log.Warn("aggregator returned error status",
				logger.Int("attempt", attempt), logger.Int("status", resp.StatusCode),
				logger.String("body", truncate(body, logBodyLimit)))
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		var payload searchResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("%w: decode response: %w", domain.ErrAggregatorFetch, err)
		}
		if payload.Error != "" {
			return nil, fmt.Errorf("%w: aggregator reported: %s", domain.ErrAggregatorFetch, payload.Error)
		}

		products := c.mapResults(payload.ShoppingResults)
		c.log.Info("aggregator fetch complete",
			logger.String("query", query),
			logger.Int("listings", len(payload.ShoppingResults)),
			logger.Int("products", len(products)))
		return products, nil
	}

	c.log.Error("aggregator retries exhausted", logger.String("query", query), logger.Error(lastErr))
	return nil, fmt.Errorf("%w: %w", domain.ErrAggregatorFetch, lastErr)
}

func (c *Client) mapResults(results []shoppingResult) []domain.Product {
	products := make([]domain.Product, 0, len(results))
	for i := range results {
		p, err := MapToProduct(&results[i], c.engine, c.currency)
		if err != nil {
			c.log.Debug("dropping listing", logger.String("title", results[i].Title), logger.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}

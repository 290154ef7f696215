package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/productlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		APIKey:  "test-api-key",
		BaseURL: baseURL,
	}, nil)
}

func TestNewClient(t *testing.T) {
	client := newTestClient("https://api.example.com/")

	assert.NotNil(t, client)
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.Equal(t, defaultEngine, client.engine)
	assert.Equal(t, defaultCurrency, client.currency)
	assert.Equal(t, defaultMaxAttempts, client.maxAttempts)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := newTestClient("https://api.example.com")

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestFetchListings_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "laptop", r.URL.Query().Get("q"))
		assert.Equal(t, "google_shopping", r.URL.Query().Get("engine"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"shopping_results": [
				{"title": "Laptop A", "link": "https://www.amazon.com/a", "price": "$999.99", "extracted_price": 999.99, "source": "Amazon.com", "rating": 4.5, "reviews": 120},
				{"title": "Laptop B", "product_link": "https://www.bestbuy.com/b", "price": "$899.00", "extracted_price": 899, "source": "Best Buy", "delivery": "Free delivery"},
				{"title": "Broken", "link": "not a url", "price": "$1"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	products, err := client.FetchListings(context.Background(), "laptop")

	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "Laptop A", products[0].Name)
	assert.Equal(t, "https://www.amazon.com/a", products[0].Link)
	assert.Equal(t, 999.99, products[0].Price.Value)
	assert.Equal(t, "$999.99", products[0].Price.Formatted)
	assert.Equal(t, "USD", products[0].Price.Currency)
	assert.Equal(t, "google_shopping", products[0].Platform)
	assert.Equal(t, "Amazon.com", products[0].Seller)
	require.NotNil(t, products[0].Rating)
	assert.Equal(t, 4.5, products[0].Rating.Value)
	assert.Equal(t, 120, products[0].Rating.Count)

	assert.Equal(t, "https://www.bestbuy.com/b", products[1].Link)
	assert.Equal(t, "Free delivery", products[1].Shipping)
	assert.Nil(t, products[1].Rating)
}

func TestFetchListings_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer server.Close()

	products, err := newTestClient(server.URL).FetchListings(context.Background(), "nothing")

	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestFetchListings_ReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse{Error: "Invalid API key"})
	}))
	defer server.Close()

	products, err := newTestClient(server.URL).FetchListings(context.Background(), "laptop")

	assert.Nil(t, products)
	assert.ErrorIs(t, err, domain.ErrAggregatorFetch)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestFetchListings_ServerError_Retries(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"shopping_results":[{"title":"ok","link":"https://shop.example.com/x","extracted_price":10}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxAttempts: 3}, nil)
	products, err := client.FetchListings(context.Background(), "retry")

	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestFetchListings_AllRetriesFail(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxAttempts: 2}, nil)
	products, err := client.FetchListings(context.Background(), "laptop")

	assert.Nil(t, products)
	assert.ErrorIs(t, err, domain.ErrAggregatorFetch)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestFetchListings_NoRetryByDefault(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchListings(context.Background(), "laptop")

	assert.ErrorIs(t, err, domain.ErrAggregatorFetch)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestFetchListings_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchListings(context.Background(), "laptop")

	assert.ErrorIs(t, err, domain.ErrAggregatorFetch)
}

func TestFetchListings_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).FetchListings(ctx, "laptop")

	assert.ErrorIs(t, err, domain.ErrAggregatorFetch)
}

func TestFetchListings_RequiresQueryAndKey(t *testing.T) {
	_, err := newTestClient("https://api.example.com").FetchListings(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrAggregatorFetch)

	_, err = NewClient(Config{BaseURL: "https://api.example.com"}, nil).FetchListings(context.Background(), "laptop")
	assert.ErrorIs(t, err, domain.ErrAggregatorFetch)
}

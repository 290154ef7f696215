package domain

import (
	"strings"
	"time"
)

// Product represents one listing from one seller or marketplace
type Product struct {
	Name      string  `json:"name" bson:"name"`
	Link      string  `json:"link" bson:"link"` // always an absolute URL
	Price     Price   `json:"price" bson:"price"`
	Platform  string  `json:"platform" bson:"platform"`
	Seller    string  `json:"seller" bson:"seller"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
	Rating    *Rating `json:"rating,omitempty" bson:"rating,omitempty"`
	Shipping  string  `json:"shipping,omitempty" bson:"shipping,omitempty"`
	Condition string  `json:"condition,omitempty" bson:"condition,omitempty"`
}

// Price holds the numeric amount and its display form
type Price struct {
	Value     float64 `json:"value" bson:"value"`
	Formatted string  `json:"formatted" bson:"formatted"`
	Currency  string  `json:"currency" bson:"currency"`
}

// Rating is the aggregated review score of a listing
type Rating struct {
	Value float64 `json:"value" bson:"value"`
	Count int     `json:"count" bson:"count"`
}

// SearchResultEntry is a persisted cache record pairing a query with its
// already-ordered result set
type SearchResultEntry struct {
	Query     string    `json:"query" bson:"query"`
	Results   []Product `json:"results" bson:"results"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Result sources reported to the client
const (
	SourceCache = "cache"
	SourceNew   = "new"
	SourceError = "error"
)

// SearchOutcome is what the orchestrator hands back to the delivery layer
type SearchOutcome struct {
	Query    string
	Products []Product
	Source   string
}

// MatchesQuery reports whether a stored entry query satisfies a lookup.
// Matching is case-insensitive containment in either direction, so a stored
// "laptop" answers both "Laptop" and "gaming laptop", and a stored
// "gaming laptop" answers "laptop".
func MatchesQuery(stored, query string) bool {
	if stored == "" || query == "" {
		return false
	}
	s := strings.ToLower(stored)
	q := strings.ToLower(query)
	return strings.Contains(s, q) || strings.Contains(q, s)
}

// CloneProducts returns a copy of products that shares no mutable state with the input
func CloneProducts(products []Product) []Product {
	if products == nil {
		return nil
	}
	out := make([]Product, len(products))
	for i, p := range products {
		if p.Rating != nil {
			r := *p.Rating
			p.Rating = &r
		}
		out[i] = p
	}
	return out
}

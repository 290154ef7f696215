package usecase

import (
	"net/url"
	"strings"

	"github.com/productlens/backend/internal/domain"
)

// demotedHost is the marketplace whose listings are always shown last
const demotedHost = "amazon.com"

// SortResults moves Amazon-hosted listings behind all other listings.
// It is a stable two-pass partition: relative order inside each group is kept,
// nothing is dropped, and the input slice is left untouched.
func SortResults(products []domain.Product) []domain.Product {
	sorted := make([]domain.Product, 0, len(products))
	var demoted []domain.Product

	for _, p := range products {
		if IsAmazonLink(p.Link) {
			demoted = append(demoted, p)
			continue
		}
		sorted = append(sorted, p)
	}

	return append(sorted, demoted...)
}

// IsAmazonLink reports whether link points at an amazon.com host.
// Unparseable links fall back to a plain substring check.
func IsAmazonLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return strings.Contains(strings.ToLower(link), demotedHost)
	}
	return strings.Contains(strings.ToLower(u.Hostname()), demotedHost)
}

package aggregator

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/productlens/backend/internal/domain"
)

// searchResponse is the subset of the aggregator payload we read
type searchResponse struct {
	Error           string           `json:"error,omitempty"`
	ShoppingResults []shoppingResult `json:"shopping_results"`
}

// shoppingResult is one raw listing as returned by the aggregator
type shoppingResult struct {
	Title               string   `json:"title"`
	Link                string   `json:"link"`
	ProductLink         string   `json:"product_link"`
	Price               string   `json:"price"`
	ExtractedPrice      float64  `json:"extracted_price"`
	Source              string   `json:"source"`
	Thumbnail           string   `json:"thumbnail"`
	Rating              *float64 `json:"rating,omitempty"`
	Reviews             *int     `json:"reviews,omitempty"`
	Delivery            string   `json:"delivery"`
	SecondHandCondition string   `json:"second_hand_condition"`
}

// MapToProduct converts a raw listing into a domain Product.
// Listings without an absolute http(s) link are rejected.
func MapToProduct(r *shoppingResult, platform, currency string) (domain.Product, error) {
	link := strings.TrimSpace(r.Link)
	if link == "" {
		link = strings.TrimSpace(r.ProductLink)
	}
	if !isAbsoluteURL(link) {
		return domain.Product{}, fmt.Errorf("%w: link %q is not an absolute URL", domain.ErrInvalidListing, link)
	}

	value := r.ExtractedPrice
	if value == 0 && r.Price != "" {
		value = parsePrice(r.Price)
	}

	formatted := r.Price
	if formatted == "" && value > 0 {
		formatted = strconv.FormatFloat(value, 'f', 2, 64)
	}

	p := domain.Product{
		Name: strings.TrimSpace(r.Title),
		Link: link,
		Price: domain.Price{
			Value:     value,
			Formatted: formatted,
			Currency:  currency,
		},
		Platform:  platform,
		Seller:    strings.TrimSpace(r.Source),
		Image:     r.Thumbnail,
		Shipping:  r.Delivery,
		Condition: r.SecondHandCondition,
	}

	if r.Rating != nil {
		p.Rating = &domain.Rating{Value: *r.Rating}
		if r.Reviews != nil {
			p.Rating.Count = *r.Reviews
		}
	}

	return p, nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// parsePrice pulls the numeric amount out of a display string like "$1,299.99"
func parsePrice(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

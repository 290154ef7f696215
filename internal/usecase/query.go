package usecase

import "strings"

// DefaultQuery is used when a request names no product at all
const DefaultQuery = "laptop"

// ResolveQuery picks the effective query: the path segment if present, else
// the q parameter, else the fallback. Values are never merged.
func ResolveQuery(pathQuery, paramQuery, fallback string) string {
	if q := strings.TrimSpace(pathQuery); q != "" {
		return q
	}
	if q := strings.TrimSpace(paramQuery); q != "" {
		return q
	}
	if q := strings.TrimSpace(fallback); q != "" {
		return q
	}
	return DefaultQuery
}

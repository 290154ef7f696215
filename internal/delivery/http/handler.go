package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/logger"
	"github.com/productlens/backend/internal/usecase"
)

const (
	msgFetchFailed      = "Failed to fetch product listings"
	msgSearchesDisabled = "New searches are temporarily disabled. Please try an existing query."
	msgNotConfigured    = "Product search not configured"
)

// ProductSearcher is the part of the search usecase the handler depends on
type ProductSearcher interface {
	Search(ctx context.Context, query string) (*domain.SearchOutcome, error)
	DefaultQuery() string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	searcher ProductSearcher
	log      logger.Logger
}

// NewHandler creates a new HTTP handler. searcher may be nil, in which case
// the search endpoints answer 501.
func NewHandler(searcher ProductSearcher, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{searcher: searcher, log: log}
}

// searchResponse is the success envelope
type searchResponse struct {
	Success bool             `json:"success"`
	Data    []domain.Product `json:"data"`
	Source  string           `json:"source"`
}

// errorResponse is the failure envelope. Source is only set in disabled mode.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Source  string `json:"source,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "productlens-backend",
		"version": "1.0.0",
	})
}

// SearchProducts handles GET /search/:itemQuery and GET /search?q=
func (h *Handler) SearchProducts(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Success: false, Error: msgNotConfigured})
		return
	}

	query := usecase.ResolveQuery(c.Param("itemQuery"), c.Query("q"), h.searcher.DefaultQuery())

	outcome, err := h.searcher.Search(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrNewSearchesDisabled) {
			c.JSON(http.StatusServiceUnavailable, errorResponse{
				Success: false,
				Error:   msgSearchesDisabled,
				Source:  domain.SourceError,
			})
			return
		}
		// details were logged by the usecase; the client only gets the generic message
		c.JSON(http.StatusInternalServerError, errorResponse{Success: false, Error: msgFetchFailed})
		return
	}

	data := outcome.Products
	if data == nil {
		data = []domain.Product{}
	}
	c.JSON(http.StatusOK, searchResponse{
		Success: true,
		Data:    data,
		Source:  outcome.Source,
	})
}

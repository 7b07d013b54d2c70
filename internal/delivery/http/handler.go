package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/catalogmatch/backend/internal/domain"
)

const (
	serviceName    = "catalogmatch-backend"
	serviceVersion = "1.0.0"
)

// RecommendationMatcher finds the best design recommendation for a request
type RecommendationMatcher interface {
	Match(ctx context.Context, request *domain.RecommendationRequest) (*domain.RecommendationResponse, error)
}

// MaterialSearcher answers free-text material queries
type MaterialSearcher interface {
	Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	recommendations RecommendationMatcher
	search          MaterialSearcher
	logger          zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(recommendations RecommendationMatcher, search MaterialSearcher, logger zerolog.Logger) *Handler {
	return &Handler{
		recommendations: recommendations,
		search:          search,
		logger:          logger.With().Str("component", "http_handler").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// MatchRecommendation handles POST /api/v1/recommendations/match
func (h *Handler) MatchRecommendation(c *gin.Context) {
	var req domain.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.recommendations.Match(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchMaterials handles POST /api/v1/materials/search. A single-item query
// answers {result}, null when nothing was found; a multi-item query answers
// {results, notFound}.
func (h *Handler) SearchMaterials(c *gin.Context) {
	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.search.Search(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !resp.IsMultiple {
		c.JSON(http.StatusOK, gin.H{"result": resp.Result})
		return
	}

	results := resp.Results
	if results == nil {
		results = []*domain.MatchResult{}
	}
	notFound := resp.NotFound
	if notFound == nil {
		notFound = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"results":  results,
		"notFound": notFound,
	})
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Error().
		Err(err).
		Str("path", c.FullPath()).
		Str("request_id", c.GetString(requestIDKey)).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/prodlens/backend/internal/domain"
)

const (
	serviceName    = "prodlens-backend"
	serviceVersion = "1.0.0"

	lowConfidenceMessage = "Could not find exact product match. Please verify the product details."
)

// ProductLookup resolves a lookup request into a product
type ProductLookup interface {
	Lookup(ctx context.Context, request *domain.LookupRequest) (*domain.LookupResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	lookup ProductLookup
	logger *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(lookup ProductLookup) *Handler {
	return &Handler{
		lookup: lookup,
		logger: slog.Default().With("component", "http"),
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

// LookupProduct handles GET /api/lookup
func (h *Handler) LookupProduct(c *gin.Context) {
	var request domain.LookupRequest
	if err := c.ShouldBindQuery(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	if h.lookup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Product lookup is not configured"})
		return
	}

	result, err := h.lookup.Lookup(c.Request.Context(), &request)
	if err != nil {
		h.writeError(c, result, err)
		return
	}

	c.JSON(http.StatusOK, result.Record)
}

// writeError maps lookup errors to status codes and messages
func (h *Handler) writeError(c *gin.Context, result *domain.LookupResult, err error) {
	ctx := c.Request.Context()

	switch {
	case errors.Is(err, domain.ErrLowConfidence) && result != nil:
		c.JSON(http.StatusNotFound, gin.H{
			"error":          lowConfidenceMessage,
			"partial_result": partialResult(result),
		})
		return

	case errors.Is(err, domain.ErrInvalidRequest):
		message := err.Error()
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			message = bindingErrorMessage(validationErrors)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return
	}

	var message string
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		message = domain.ErrMissingCredential.Error()
	case errors.Is(err, domain.ErrExtraction):
		message = "Invalid JSON structure from API response (Parsing Error): " + err.Error()
	case errors.Is(err, domain.ErrAISearchFailed):
		cause := strings.TrimPrefix(err.Error(), domain.ErrAISearchFailed.Error()+": ")
		message = "AI Search failed to find the product: " + cause
	case errors.Is(err, domain.ErrUpstreamHTTP):
		message = "External API Error (UPC DB or Gemini): " + err.Error()
	default:
		message = "Internal Server Error: " + err.Error()
	}

	h.logger.ErrorContext(ctx, "lookup failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

// partialResult prefers the raw AI answer so callers see exactly what the model returned
func partialResult(result *domain.LookupResult) any {
	if len(result.Raw) > 0 {
		return json.RawMessage(result.Raw)
	}
	return result.Record
}

// bindingErrorMessage names the first query parameter that failed validation
func bindingErrorMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("Query parameter %q is required", fe.Field())
		}
		return fmt.Sprintf("Query parameter %q is invalid", fe.Field())
	}
	return "Invalid query parameters: " + err.Error()
}

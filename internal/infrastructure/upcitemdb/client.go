package upcitemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/prodlens/backend/internal/domain"
)

const (
	DefaultBaseURL = "https://api.upcitemdb.com/prod/trial"

	maxResponseBytes   = 1 << 20
	maxErrorBodyLength = 512
)

// lookupResponse mirrors the UPCitemdb /lookup payload
type lookupResponse struct {
	Code    string `json:"code"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
	Items   []item `json:"items"`
}

type item struct {
	EAN         string   `json:"ean"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	UPC         string   `json:"upc"`
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Color       string   `json:"color"`
	Size        string   `json:"size"`
	Images      []string `json:"images"`
	Offers      []offer  `json:"offers"`
}

type offer struct {
	Merchant string          `json:"merchant"`
	Title    string          `json:"title"`
	Price    json.RawMessage `json:"price"`
	Link     string          `json:"link"`
}

// Client handles communication with the UPCitemdb lookup API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

var _ domain.UPCClient = (*Client)(nil)

// NewClient creates a new UPCitemdb client. requestsPerMinute <= 0 disables client-side limiting.
func NewClient(baseURL string, timeout time.Duration, requestsPerMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	// The trial plan allows 6 lookups per minute
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		logger:      slog.Default().With(slog.String("component", "upcitemdb")),
	}
}

// Lookup fetches the first item registered for upc and normalizes it.
// Failures are not retried: the caller falls back to AI search instead.
func (c *Client) Lookup(ctx context.Context, upc string) (*domain.ProductRecord, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/lookup?%s", c.baseURL, url.Values{"upc": {upc}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ProdLens/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upcitemdb request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "UPC lookup returned error status",
			slog.String("upc", upc), slog.Int("status", resp.StatusCode))
		return nil, &domain.UpstreamHTTPError{
			Service:    "UPC Item DB",
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBodyLength),
		}
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Items) == 0 {
		c.logger.InfoContext(ctx, "UPC lookup returned no items", slog.String("upc", upc))
		return nil, fmt.Errorf("%w: UPC %s", domain.ErrNoResult, upc)
	}

	c.logger.InfoContext(ctx, "UPC lookup succeeded",
		slog.String("upc", upc), slog.Int("items", len(parsed.Items)))
	return MapToProductRecord(&parsed.Items[0]), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

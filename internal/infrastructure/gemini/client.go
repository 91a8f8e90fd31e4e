package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel       = "gemini-2.5-flash-preview-09-2025"
	DefaultMaxRetries  = 5
	DefaultBackoffUnit = time.Second

	maxErrorBodyLength = 512
)

var errEmptyResponse = errors.New("response content missing or blocked")

// Config holds Gemini client settings
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxRetries        int
	BackoffUnit       time.Duration
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client handles communication with the Gemini generateContent API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	endpoint    string
	maxRetries  int
	backoffUnit time.Duration
	rateLimiter *rate.Limiter
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

var _ domain.AIClient = (*Client)(nil)

// NewClient creates a new Gemini API client
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	backoffUnit := cfg.BackoffUnit
	if backoffUnit <= 0 {
		backoffUnit = DefaultBackoffUnit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		endpoint:    fmt.Sprintf("%s/models/%s:generateContent", baseURL, model),
		maxRetries:  maxRetries,
		backoffUnit: backoffUnit,
		rateLimiter: limiter,
		sleep:       sleepContext,
		logger:      slog.Default().With(slog.String("component", "gemini")),
	}
}

// Generate sends the prompt and returns the JSON object extracted from the answer.
// Failed attempts are retried after 2^attempt backoff units; the last failure is returned.
func (c *Client) Generate(ctx context.Context, prompt string, useSearchTools bool) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, domain.ErrMissingCredential
	}

	payload := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if useSearchTools {
		payload.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		result, err := c.generateOnce(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == c.maxRetries-1 {
			break
		}

		wait := c.backoff(attempt)
		var httpErr *domain.UpstreamHTTPError
		if errors.As(err, &httpErr) {
			c.logger.WarnContext(ctx, "HTTP error from Gemini, retrying",
				slog.Int("status", httpErr.StatusCode),
				slog.String("body", httpErr.Body),
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait))
		} else {
			c.logger.WarnContext(ctx, "Gemini request failed, retrying",
				slog.Any("error", err),
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait))
		}

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	c.logger.ErrorContext(ctx, "Gemini request failed after all retries",
		slog.Int("attempts", c.maxRetries), slog.Any("error", lastErr))
	return nil, lastErr
}

// generateOnce performs a single attempt
func (c *Client) generateOnce(ctx context.Context, body []byte) (json.RawMessage, error) {
	reqURL := c.endpoint + "?" + url.Values{"key": {c.apiKey}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", redactURLError(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamHTTPError{
			Service:    "Gemini API",
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), maxErrorBodyLength),
		}
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	text, err := responseText(&parsed)
	if err != nil {
		return nil, err
	}

	return ExtractJSON(text)
}

// responseText joins the text parts of the first candidate
func responseText(resp *generateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", errEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: empty text (finish reason %q)", errEmptyResponse, resp.Candidates[0].FinishReason)
	}

	return sb.String(), nil
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.backoffUnit * time.Duration(1<<attempt)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// redactURLError drops the request URL, which carries the API key
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

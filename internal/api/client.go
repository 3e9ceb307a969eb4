// Package api provides the HTTP client for the Inkwell service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell/inkwell-cli/internal/config"
	"github.com/inkwell/inkwell-cli/internal/models"
	"github.com/inkwell/inkwell-cli/internal/observability"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/version"
)

const (
	maxRetries = 5
	baseDelay  = 1 * time.Second
	maxJitter  = 100 * time.Millisecond
)

// TokenSource supplies bearer tokens for requests. auth.Manager implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// Reporter receives passive connectivity signals from request outcomes.
// connectivity.Monitor implements it.
type Reporter interface {
	ReportSuccess()
	ReportFailure()
}

// Client is an HTTP client for the Inkwell API.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	cfg        *config.Config
	cache      *Cache
	hooks      observability.Hooks
	reporter   Reporter
	logger     *slog.Logger

	// sleep waits between retry attempts; swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Response wraps an API response.
type Response struct {
	Data       json.RawMessage
	StatusCode int
	Headers    http.Header
	FromCache  bool
}

// UnmarshalData unmarshals the response data into the given value.
func (r *Response) UnmarshalData(v any) error {
	return json.Unmarshal(r.Data, v)
}

// NewClient creates a new API client.
func NewClient(cfg *config.Config, tokens TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens: tokens,
		cfg:    cfg,
		cache:  NewCache(cfg.CacheDir),
		hooks:  observability.NewCLIHooks(0, nil, nil),
		logger: slog.New(slog.DiscardHandler),
		sleep:  sleepContext,
	}
}

// SetHooks installs request/operation hooks. Must be called before use.
func (c *Client) SetHooks(h observability.Hooks) {
	if h != nil {
		c.hooks = h
	}
}

// SetReporter installs a connectivity reporter fed by request outcomes.
func (c *Client) SetReporter(r Reporter) {
	c.reporter = r
}

// SetLogger installs a structured logger for request tracing.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.doRequest(ctx, "GET", path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.doRequest(ctx, "POST", path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.doRequest(ctx, "PUT", path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.doRequest(ctx, "DELETE", path, nil)
}

// GetAll fetches all pages for a paginated resource by following Link headers.
func (c *Client) GetAll(ctx context.Context, path string) ([]json.RawMessage, error) {
	var allResults []json.RawMessage
	url := c.buildURL(path)
	maxPages := 10000
	page := 0

	for page = 1; page <= maxPages; page++ {
		resp, err := c.doRequestURL(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}

		var items []json.RawMessage
		if err := json.Unmarshal(resp.Data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		allResults = append(allResults, items...)

		nextURL := parseNextLink(resp.Headers.Get("Link"))
		if nextURL == "" {
			break
		}
		url = nextURL
	}

	if page > maxPages {
		c.logger.Warn("pagination capped; results may be incomplete", "pages", maxPages)
	}

	return allResults, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*Response, error) {
	url := c.buildURL(path)
	return c.doRequestURL(ctx, method, url, body)
}

func (c *Client) doRequestURL(ctx context.Context, method, url string, body any) (*Response, error) {
	var attempt int
	var lastErr error

	for attempt = 1; attempt <= maxRetries; attempt++ {
		resp, err := c.singleRequest(ctx, method, url, body, attempt)
		if err == nil {
			return resp, nil
		}

		apiErr, ok := err.(*output.Error)
		if !ok || !apiErr.Retryable {
			return nil, err
		}
		lastErr = err

		delay := c.backoffDelay(attempt)
		// A Retry-After from the server outranks our own schedule.
		if ra := time.Duration(apiErr.RetryAfter) * time.Second; ra > delay {
			delay = ra
		}

		c.hooks.OnRetry(ctx, observability.RequestInfo{Method: method, URL: url, Attempt: attempt}, attempt, err)
		c.logger.Debug("retrying request", "method", method, "url", url, "attempt", attempt, "delay", delay, "error", err)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) singleRequest(ctx context.Context, method, url string, body any, attempt int) (*Response, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	// Add ETag for cached GET requests
	var cacheKey string
	if method == "GET" && c.cfg.CacheEnabled {
		cacheKey = c.cache.Key(url, c.cfg.Account, token)
		if etag := c.cache.GetETag(cacheKey); etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
	}

	info := observability.RequestInfo{Method: method, URL: url, Attempt: attempt}
	ctx = c.hooks.OnRequestStart(ctx, info)
	c.logger.Debug("request", "method", method, "url", url, "attempt", attempt)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.reportFailure()
		netErr := output.ErrNetwork(err)
		c.hooks.OnRequestEnd(ctx, info, observability.RequestResult{
			Duration:  duration,
			Retryable: true,
			Error:     netErr,
		})
		return nil, netErr
	}
	defer resp.Body.Close()

	c.logger.Debug("response", "status", resp.StatusCode, "duration", duration)

	// Server errors count against connectivity the same way the active
	// probe treats them: saves will not succeed against a 5xx either.
	if resp.StatusCode >= 500 {
		c.reportFailure()
	} else {
		c.reportSuccess()
	}

	out, reqErr := c.handleResponse(ctx, resp, method, url, cacheKey, attempt)

	result := observability.RequestResult{
		StatusCode: resp.StatusCode,
		Duration:   duration,
		Error:      reqErr,
	}
	if out != nil {
		result.FromCache = out.FromCache
	}
	if apiErr, ok := reqErr.(*output.Error); ok {
		result.Retryable = apiErr.Retryable
	}
	c.hooks.OnRequestEnd(ctx, info, result)

	return out, reqErr
}

func (c *Client) handleResponse(ctx context.Context, resp *http.Response, method, url, cacheKey string, attempt int) (*Response, error) {
	switch resp.StatusCode {
	case http.StatusNotModified: // 304
		if cacheKey != "" {
			cached := c.cache.GetBody(cacheKey)
			if cached != nil {
				c.logger.Debug("cache hit", "url", url)
				return &Response{
					Data:       cached,
					StatusCode: http.StatusOK,
					Headers:    resp.Header,
					FromCache:  true,
				}, nil
			}
		}
		return nil, output.ErrAPI(304, "304 received but no cached response available")

	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		// Cache GET responses with ETag
		if method == "GET" && cacheKey != "" {
			if etag := resp.Header.Get("ETag"); etag != "" {
				_ = c.cache.Set(cacheKey, respBody, etag)
			}
		}

		return &Response{
			Data:       respBody,
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
		}, nil

	case http.StatusTooManyRequests: // 429
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, output.ErrRateLimit(retryAfter)

	case http.StatusUnauthorized: // 401
		// Try token refresh on first 401
		if attempt == 1 {
			if err := c.tokens.Refresh(ctx); err == nil {
				// Retry with new token
				return nil, &output.Error{
					Code:      output.CodeAuth,
					Message:   "Token refreshed",
					Retryable: true,
				}
			}
		}
		return nil, output.ErrAuth("Authentication failed")

	case http.StatusForbidden: // 403
		return nil, output.ErrForbidden("Access denied")

	case http.StatusNotFound: // 404
		return nil, output.ErrNotFound("Resource", url)

	case http.StatusConflict: // 409
		respBody, _ := io.ReadAll(resp.Body)
		return nil, conflictError(respBody)

	default:
		respBody, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 500 {
			return nil, &output.Error{
				Code:       output.CodeAPI,
				Message:    fmt.Sprintf("Server error (HTTP %d)", resp.StatusCode),
				HTTPStatus: resp.StatusCode,
				Retryable:  true,
			}
		}

		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			msg := apiErr.Error
			if msg == "" {
				msg = apiErr.Message
			}
			if msg != "" {
				return nil, output.ErrAPI(resp.StatusCode, msg)
			}
		}
		return nil, output.ErrAPI(resp.StatusCode, fmt.Sprintf("Request failed (HTTP %d)", resp.StatusCode))
	}
}

// conflictError maps a 409 body to the structured conflict error. The
// service includes its current copy of the document when revisions diverge.
func conflictError(body []byte) *output.Error {
	var payload struct {
		Message  string           `json:"message"`
		Document *models.Document `json:"document"`
	}

	msg := "Document was modified remotely"
	var info *output.ConflictInfo
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			msg = payload.Message
		}
		if payload.Document != nil {
			d := payload.Document
			updatedAt, _ := time.Parse(time.RFC3339, d.UpdatedAt)
			info = &output.ConflictInfo{
				DocumentID:      d.ID,
				RemoteVersion:   d.Version,
				RemoteTitle:     d.Title,
				RemoteBody:      d.Body,
				RemoteUpdatedAt: updatedAt,
			}
		}
	}

	return output.ErrConflict(msg, info)
}

func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return config.NormalizeBaseURL(c.cfg.BaseURL) + path
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	// Exponential backoff: base * 2^(attempt-1)
	delay := baseDelay * time.Duration(1<<(attempt-1))

	// Add jitter (0-100ms)
	jitter := time.Duration(rand.Int63n(int64(maxJitter))) //nolint:gosec // G404: Jitter doesn't need crypto rand

	return delay + jitter
}

func (c *Client) reportSuccess() {
	if c.reporter != nil {
		c.reporter.ReportSuccess()
	}
}

func (c *Client) reportFailure() {
	if c.reporter != nil {
		c.reporter.ReportFailure()
	}
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

// parseNextLink extracts the next URL from a Link header.
// Example: <https://...?page=2>; rel="next", <https://...?page=5>; rel="last"
func parseNextLink(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}

	for _, part := range strings.Split(linkHeader, ",") {
		part = strings.TrimSpace(part)
		if strings.Contains(part, `rel="next"`) {
			// Extract URL between < and >
			start := strings.Index(part, "<")
			end := strings.Index(part, ">")
			if start >= 0 && end > start {
				return part[start+1 : end]
			}
		}
	}

	return ""
}

// parseRetryAfter parses the Retry-After header value.
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return seconds
	}
	return 0
}

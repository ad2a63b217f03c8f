package smartsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Smartsheet REST API 2.0 endpoint
	DefaultBaseURL = "https://api.smartsheet.com/2.0"

	// MaxRetries is the maximum number of retry attempts for rate-limited requests
	MaxRetries = 3

	// DefaultBackoff is the initial backoff duration for exponential backoff
	DefaultBackoff = 1 * time.Second
)

// Client talks to the Smartsheet REST API.
// Automatically injects:
// - Authorization: Bearer <access token>
// - X-Correlation-ID: <uuid>
//
// Retries 429 Too Many Requests, respecting Retry-After and otherwise
// backing off exponentially. Every other status is returned to the caller.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a Smartsheet API client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backoff:    DefaultBackoff,
	}
}

// Do executes a request with auth header injection and retry logic
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	correlationID := uuid.New().String()

	logger := log.With().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("correlationId", correlationID).
		Logger()

	return c.doWithRetry(ctx, req, &logger, correlationID, 0)
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request, logger *zerolog.Logger, correlationID string, retryCount int) (*http.Response, error) {
	// Body may need to be re-sent on retry
	reqClone, err := cloneRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to clone request: %w", err)
	}

	reqClone.Header.Set("X-Correlation-ID", correlationID)
	reqClone.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(reqClone)
	duration := time.Since(start)

	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("Smartsheet request failed")
		return nil, err
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Int("retryCount", retryCount).
		Msg("Smartsheet request completed")

	if resp.StatusCode == http.StatusTooManyRequests {
		return c.handleRateLimit(ctx, req, resp, logger, correlationID, retryCount)
	}
	return resp, nil
}

// handleRateLimit handles 429 Too Many Requests with exponential backoff
func (c *Client) handleRateLimit(ctx context.Context, req *http.Request, resp *http.Response, logger *zerolog.Logger, correlationID string, retryCount int) (*http.Response, error) {
	resp.Body.Close()

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))

	if retryCount >= MaxRetries {
		logger.Warn().Msg("Rate limited - max retries exceeded")
		return nil, ErrRateLimited{RetryAfter: int(retryAfter.Seconds())}
	}

	if retryAfter == 0 {
		retryAfter = c.backoff * time.Duration(1<<retryCount)
	}

	logger.Warn().
		Dur("retryAfter", retryAfter).
		Int("retryCount", retryCount).
		Msg("Rate limited - backing off")

	select {
	case <-time.After(retryAfter):
		return c.doWithRetry(ctx, req, logger, correlationID, retryCount+1)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// cloneRequest creates a copy of an HTTP request for retry,
// preserving the body by reading and restoring it
func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	reqClone, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}

	for k, v := range req.Header {
		if k == "Authorization" {
			continue // re-injected per attempt
		}
		reqClone.Header[k] = v
	}

	return reqClone, nil
}

// parseRetryAfter parses the Retry-After header (integer seconds or HTTP-date)
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// resultEnvelope wraps responses of mutating endpoints
type resultEnvelope[T any] struct {
	Message    string `json:"message"`
	ResultCode int    `json:"resultCode"`
	Result     T      `json:"result"`
}

// listEnvelope wraps paginated list responses
type listEnvelope[T any] struct {
	PageNumber int `json:"pageNumber"`
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
	Data       []T `json:"data"`
}

// request builds and executes a JSON request; out may be nil.
// notFound is returned verbatim on 404.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any, notFound ErrNotFound, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(ctx, req, notFound, out)
}

// send executes req and decodes a successful body into out
func (c *Client) send(ctx context.Context, req *http.Request, notFound ErrNotFound, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, notFound); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// checkStatus converts non-2xx responses into typed errors
func checkStatus(resp *http.Response, notFound ErrNotFound) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return notFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func sheetPath(sheetID int64) string {
	return "/sheets/" + strconv.FormatInt(sheetID, 10)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Package client provides the Discogs HTTP client with token authentication,
// rate limit gating, optional retries and error classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Discogs client operations.
var (
	discogsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discogs_requests_total",
		Help: "Total Discogs API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	discogsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discogs_request_duration_seconds",
		Help:    "Discogs API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	discogsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discogs_errors_total",
		Help: "Total Discogs API errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public Discogs API endpoint.
const DefaultBaseURL = "https://api.discogs.com"

// DefaultUserAgent identifies this tool to Discogs, which rejects requests
// without a User-Agent.
const DefaultUserAgent = "recordsync/1.0 (+https://github.com/herbadis/recordsync)"

const maxErrorBody = 4 << 10

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Limiter gates outgoing requests and learns from response headers.
// *ratelimit.Tracker satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
	Observe(ctx context.Context, headers http.Header) error
}

// Client is the Discogs API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API; DefaultBaseURL when empty.
	BaseURL string

	// Token is the Discogs personal access token (REQUIRED).
	Token string

	// UserAgent header (REQUIRED by Discogs).
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Retry policy; the zero value performs a single attempt.
	Retry RetryConfig

	// Limiter is optional; nil disables rate limit gating.
	Limiter Limiter
}

// DefaultConfig returns a configuration with no retries and no limiter.
func DefaultConfig(token, userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Token:     token,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new Discogs client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("token is required")
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Retry = cfg.Retry.normalized()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		limiter: cfg.Limiter,
		config:  cfg,
		logger:  log.With().Str("component", "discogs-client").Logger(),
	}, nil
}

// Do sends req with authentication, rate limit gating and the configured
// retry policy. Any status >= 400 is returned as an *APIError; on success
// the caller owns the response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		discogsRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/vnd.discogs.v2.discogs+json")
	req.Header.Set("Authorization", "Discogs token="+c.config.Token)

	var resp *http.Response

	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() (ErrorClass, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				discogsRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
				return "", fmt.Errorf("%w: %w", ErrRateLimited, err)
			}
		}

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("method", req.Method).
			Str("query", req.URL.RawQuery).
			Msg("Executing Discogs request")

		r, reqErr := c.httpClient.Do(req.Clone(ctx))
		if reqErr != nil {
			errClass := classify(0, reqErr)
			discogsErrorsTotal.WithLabelValues(string(errClass)).Inc()
			discogsRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Warn().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			return errClass, reqErr
		}

		if c.limiter != nil {
			if err := c.limiter.Observe(ctx, r.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		discogsRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(r.StatusCode)).Inc()

		if r.StatusCode >= 400 {
			errClass := classify(r.StatusCode, nil)
			discogsErrorsTotal.WithLabelValues(string(errClass)).Inc()
			apiErr := newAPIError(r, errClass)
			r.Body.Close()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", r.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Discogs request error")
			return errClass, apiErr
		}

		resp = r
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetJSON issues a GET for path relative to the base URL and decodes the
// JSON response body into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", endpointLabel(path), err)
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func newAPIError(resp *http.Response, errClass ErrorClass) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = resp.Status
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: errClass,
		Message:    msg,
	}
	if resp.StatusCode == http.StatusNotFound && strings.Contains(msg, "User does not exist") {
		apiErr.Err = ErrUserNotFound
	}
	return apiErr
}

// classify categorizes a failed attempt for retry decisions and metrics.
func classify(statusCode int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// endpointLabel strips usernames and numeric IDs from a path so metric
// label cardinality stays bounded.
func endpointLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		switch {
		case i > 0 && segments[i-1] == "users":
			segments[i] = "{username}"
		case seg != "" && isDigits(seg):
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

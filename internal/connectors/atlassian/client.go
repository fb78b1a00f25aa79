package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

const (
	// maxResponseSize bounds a single API response body.
	maxResponseSize = 20 << 20 // 20 MB

	userAgent = "workspace-spider"
)

// Options configures a product client.
type Options struct {
	// Product selects the default rate limits and appears in errors.
	Product domain.SourceSystem

	// BaseURL is the instance root all request paths are joined to.
	BaseURL string

	// Credentials authorize every request.
	Credentials Credentials

	// Limiter gates outbound calls. A nil limiter gets the product
	// defaults.
	Limiter *RateLimiter

	// RetryMax caps transient retries per call.
	RetryMax int

	// BackoffBase is the initial retry delay; jitter is applied on top.
	BackoffBase time.Duration

	// Timeout bounds one HTTP round-trip.
	Timeout time.Duration

	// Timer overrides the backoff timer. Tests inject an immediate
	// timer to observe retry behaviour without sleeping.
	Timer backoff.Timer
}

// Client issues rate-limited, retried, authorized REST calls against
// one Atlassian product. The Confluence and Jira connectors each hold
// one.
type Client struct {
	product     domain.SourceSystem
	baseURL     string
	httpClient  *http.Client
	limiter     *RateLimiter
	retryMax    uint64
	backoffBase time.Duration
	timer       backoff.Timer
	requests    atomic.Int64
	closed      atomic.Bool
}

// NewClient creates a client for one product instance.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("%w: empty base URL", domain.ErrInvalidInput)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: base URL %q: %v", domain.ErrInvalidInput, opts.BaseURL, err)
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(opts.Product, 0, 0)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}
	retryMax := opts.RetryMax
	if retryMax <= 0 {
		retryMax = domain.DefaultRetryMax
	}
	backoffBase := opts.BackoffBase
	if backoffBase <= 0 {
		backoffBase = domain.DefaultBackoffBase
	}

	return &Client{
		product:     opts.Product,
		baseURL:     base,
		httpClient:  opts.Credentials.httpClient(context.Background(), timeout),
		limiter:     limiter,
		retryMax:    uint64(retryMax),
		backoffBase: backoffBase,
		timer:       opts.Timer,
	}, nil
}

// BaseURL returns the normalised instance root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Requests reports the number of HTTP calls issued so far, retries
// included.
func (c *Client) Requests() int64 {
	return c.requests.Load()
}

// Close marks the client closed and drops idle connections.
func (c *Client) Close() error {
	c.closed.Store(true)
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetJSON issues a GET against path, decoding the JSON response into
// out. Transient failures (429, 5xx, connection trouble) are retried
// with exponential backoff and jitter up to the retry cap; exhausting
// the cap surfaces an error matching domain.ErrRetryExhausted. Fatal
// outcomes propagate immediately.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.closed.Load() {
		return domain.ErrConnectorClosed
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.retry(ctx, func() error {
		return c.getOnce(ctx, u, out)
	})
}

// retry drives the backoff loop. Outcomes are classified as values;
// only transient ones feed back into the loop, everything else
// short-circuits as permanent.
func (c *Client) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.backoffBase
	bo.RandomizationFactor = 0.5
	bo.Multiplier = 2
	bo.MaxInterval = 5 * c.backoffBase
	bo.MaxElapsedTime = 0 // the attempt cap bounds the loop, not wall time

	attempts := 0
	err := backoff.RetryNotifyWithTimer(
		func() error {
			attempts++
			err := op()
			switch Classify(err) {
			case OutcomeSuccess:
				return nil
			case OutcomeTransient:
				return err
			default:
				return backoff.Permanent(err)
			}
		},
		backoff.WithContext(backoff.WithMaxRetries(bo, c.retryMax), ctx),
		func(err error, delay time.Duration) {
			logger.Debug("%s: transient failure, retrying in %s: %v",
				c.product, delay.Round(time.Millisecond), err)
		},
		c.timer,
	)
	if err != nil && IsTransient(err) {
		return fmt.Errorf("%w after %d attempts: %w", domain.ErrRetryExhausted, attempts, err)
	}
	return err
}

// getOnce performs a single attempt: limiter gate, request, outcome.
func (c *Client) getOnce(ctx context.Context, u string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: building request for %s: %v", domain.ErrInvalidInput, u, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.requests.Add(1)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.responseError(resp, u)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %v", domain.ErrInvalidRecord, u, err)
	}
	return nil
}

// responseError turns a non-200 response into a typed error and feeds
// 429 hints back into the limiter.
func (c *Client) responseError(resp *http.Response, u string) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		if retryAfter > 0 {
			// Without a hint the exponential backoff already spaces
			// the retries; a pushed window would only double up.
			c.limiter.RecordRateLimitError(retryAfter)
		}
		return &RateLimitError{RetryAfter: retryAfter, URL: u}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    readErrorMessage(resp.Body),
		URL:        u,
	}
}

// atlassianError is the error envelope both products return.
type atlassianError struct {
	Message       string   `json:"message"`
	ErrorMessages []string `json:"errorMessages"`
}

// readErrorMessage extracts a human-readable message from an error
// body, falling back to the raw text when it is not the JSON envelope.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var envelope atlassianError
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if len(envelope.ErrorMessages) > 0 {
			return strings.Join(envelope.ErrorMessages, "; ")
		}
	}
	return strings.TrimSpace(string(data))
}

// parseRetryAfter reads a Retry-After header, seconds form only; the
// HTTP-date form is rare enough on Atlassian cloud to ignore.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults applied by ScanConfig.ApplyDefaults. Rate ceilings are
// conservative relative to Atlassian's published cloud quotas.
const (
	// DefaultWorkers is the per-product worker pool size.
	DefaultWorkers = 4

	// DefaultRateCapacity is the token bucket burst capacity.
	DefaultRateCapacity = 10

	// DefaultRateRefill is the bucket refill rate in tokens/second.
	DefaultRateRefill = 5.0

	// DefaultRetryMax is the number of retries after the first attempt
	// of a transient-failing call.
	DefaultRetryMax = 4

	// DefaultBackoffBase is the initial backoff delay between retries.
	DefaultBackoffBase = 2 * time.Second

	// DefaultRequestTimeout bounds a single HTTP round-trip.
	DefaultRequestTimeout = 30 * time.Second
)

// ProductConfig configures one product's connector and traversal share.
type ProductConfig struct {
	// BaseURL is the instance root, e.g. https://acme.atlassian.net/wiki
	// for Confluence or https://acme.atlassian.net for Jira. An empty
	// BaseURL disables the product for the scan.
	BaseURL string

	// Spaces optionally narrows the Confluence seed to these space keys.
	// Empty means all visible spaces. Ignored by Jira.
	Spaces []string

	// JQL selects the Jira issue seed set. Empty means all visible
	// issues ("order by created"). Ignored by Confluence.
	JQL string

	// Workers is the bounded pool size for this product's traversal.
	Workers int

	// RateCapacity is the token bucket capacity C.
	RateCapacity int

	// RateRefill is the token bucket refill rate R in tokens/second.
	RateRefill float64
}

// Enabled reports whether the product takes part in the scan.
func (p *ProductConfig) Enabled() bool {
	return p.BaseURL != ""
}

// ScanConfig is everything the traversal engine consumes: product
// endpoints and scope filters, concurrency, rate limits, and the retry
// policy. It is passed explicitly into every component constructor;
// there is no ambient configuration state.
type ScanConfig struct {
	// Confluence configures the Confluence side of the scan.
	Confluence ProductConfig

	// Jira configures the Jira side of the scan.
	Jira ProductConfig

	// RetryMax caps transient retries per call.
	RetryMax int

	// BackoffBase is the initial delay of the exponential backoff
	// between transient retries. Jitter is applied on top.
	BackoffBase time.Duration

	// RequestTimeout bounds each HTTP round-trip.
	RequestTimeout time.Duration
}

// ApplyDefaults fills unset knobs with the package defaults and
// normalises base URLs (no trailing slash).
func (c *ScanConfig) ApplyDefaults() {
	for _, p := range []*ProductConfig{&c.Confluence, &c.Jira} {
		p.BaseURL = strings.TrimRight(p.BaseURL, "/")
		if p.Workers <= 0 {
			p.Workers = DefaultWorkers
		}
		if p.RateCapacity <= 0 {
			p.RateCapacity = DefaultRateCapacity
		}
		if p.RateRefill <= 0 {
			p.RateRefill = DefaultRateRefill
		}
	}
	if c.RetryMax <= 0 {
		c.RetryMax = DefaultRetryMax
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}

// Validate checks the configuration is runnable: at least one product
// enabled and every enabled base URL absolute.
func (c *ScanConfig) Validate() error {
	if !c.Confluence.Enabled() && !c.Jira.Enabled() {
		return fmt.Errorf("%w: no product configured", ErrInvalidInput)
	}
	for name, p := range map[string]*ProductConfig{
		"confluence": &c.Confluence,
		"jira":       &c.Jira,
	} {
		if !p.Enabled() {
			continue
		}
		u, err := url.Parse(p.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%w: %s base URL %q is not absolute", ErrInvalidInput, name, p.BaseURL)
		}
	}
	return nil
}

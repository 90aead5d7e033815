// Package eutils provides a cached, rate-limited client for the NCBI
// E-utilities ELink endpoint, used to map PubMed IDs to PubMed Central IDs.
package eutils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/sethgrid/pester"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the ELink endpoint.
	BaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/elink.fcgi"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// NCBI allows 3 requests per second without an API key and 10 with one.
	RateLimit        = 3.0
	RateLimitWithKey = 10.0

	// DefaultMaxRetries is the number of attempts per request.
	DefaultMaxRetries = 3

	// APIKeyEnv is the environment variable consulted when no key is configured.
	APIKeyEnv = "NCBI_API_KEY"
)

// Doer is the subset of an HTTP client the lookup needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client resolves PMIDs to PMCIDs.
type Client struct {
	httpClient Doer
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	memory     *MemoryCache
	persistent Cache
	log        logrus.FieldLogger

	maxRetries int
	hc         *http.Client
	rateLimit  float64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the NCBI API key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets the underlying HTTP client that pester retries on.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithCache adds a persistent cache consulted after the in-memory cache.
func WithCache(cache Cache) ClientOption {
	return func(c *Client) {
		c.persistent = cache
	}
}

// WithMaxRetries sets the number of attempts per request.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.rateLimit = rps
		}
	}
}

// WithLogger sets the logger for cache and request tracing.
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a new E-utilities client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    BaseURL,
		memory:     NewMemoryCache(),
		log:        logrus.StandardLogger(),
		maxRetries: DefaultMaxRetries,
		hc:         &http.Client{Timeout: DefaultTimeout},
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.rateLimit == 0 {
		c.rateLimit = RateLimit
		if c.apiKey != "" {
			c.rateLimit = RateLimitWithKey
		}
	}
	c.limiter = rate.NewLimiter(rate.Limit(c.rateLimit), 1)

	pc := pester.NewExtendedClient(c.hc)
	pc.Backoff = pester.ExponentialBackoff
	pc.MaxRetries = c.maxRetries
	c.httpClient = pc

	return c
}

// PMCID returns the PubMed Central ID for pmid, or "" if PubMed has no PMC
// record for it. Results, including "not found", are cached. Only transport
// or protocol failures return an error; they wrap ErrLookup.
func (c *Client) PMCID(ctx context.Context, pmid string) (string, error) {
	pmid = strings.TrimSpace(pmid)
	if pmid == "" {
		return "", nil
	}

	if v, ok, _ := c.memory.Get(pmid); ok {
		return v, nil
	}

	if c.persistent != nil {
		v, ok, err := c.persistent.Get(pmid)
		if err != nil {
			c.log.WithError(err).WithField("pmid", pmid).Warn("reading PMCID cache")
		} else if ok {
			c.memory.Put(pmid, v)
			c.log.WithField("pmid", pmid).Debug("PMCID cache hit")
			return v, nil
		}
	}

	pmcid, err := c.fetch(ctx, pmid)
	if err != nil {
		return "", err
	}

	c.memory.Put(pmid, pmcid)
	if c.persistent != nil {
		if err := c.persistent.Put(pmid, pmcid); err != nil {
			c.log.WithError(err).WithField("pmid", pmid).Warn("writing PMCID cache")
		}
	}
	return pmcid, nil
}

// fetch performs the ELink request for one PMID.
func (c *Client) fetch(ctx context.Context, pmid string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", ErrLookup, err)
	}

	params := url.Values{}
	params.Set("dbfrom", "pubmed")
	params.Set("db", "pmc")
	params.Set("id", pmid)
	params.Set("retmode", "json")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrLookup, err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.WithField("pmid", pmid).Debug("querying ELink")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, PMID: pmid}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrNetworkError, err)
	}

	var parsed elinkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: parsing ELink response: %v", ErrInvalidResponse, err)
	}

	return parsed.firstPMCID(), nil
}

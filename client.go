package tinify

import (
	"encoding/base64"
	"net/http"
	"strings"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const (
	// shrinkEndpoint receives image uploads.
	shrinkEndpoint = "https://api.tinify.com/shrink"

	// MaxUploadSize is the largest image payload the API accepts, 5 MiB.
	MaxUploadSize = 5 * 1024 * 1024

	// MaxDimension is the largest width or height a resize may request.
	MaxDimension = 10000
)

// supportedExtensions are the file types accepted for upload from disk.
var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Stats holds atomic request counters.
type Stats struct {
	// TotalRequests counts HTTP attempts, including retries.
	TotalRequests uint64
	// TotalErrors counts attempts that ended in an error.
	TotalErrors uint64
	// Retries counts attempts made after a failed one.
	Retries uint64
	// RateLimitWaits counts requests that had to wait for the client-side
	// token bucket.
	RateLimitWaits uint64
}

// StatsProvider exposes request counters to external collectors.
type StatsProvider interface {
	Stats() Stats
}

// Client talks to the Tinify API. It is safe for concurrent use; create one
// per API key and share it.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        *config
	apiKey     string
	authHeader string

	totalReqs   atomic.Uint64
	totalErrors atomic.Uint64
	retries     atomic.Uint64
	limitWaits  atomic.Uint64
}

// Compile-time interface check.
var _ StatsProvider = (*Client)(nil)

// NewClient creates a Client for the given API key. The key is required;
// an empty one fails with KindInvalidAPIKey before any network activity.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, newError(KindInvalidAPIKey, "API key invalid or missing")
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	perSecond := rate.Limit(float64(cfg.rateLimit.RequestsPerMinute) / 60.0)
	lim := rate.NewLimiter(perSecond, cfg.rateLimit.BurstCapacity)

	return &Client{
		httpClient: hc,
		limiter:    lim,
		cfg:        cfg,
		apiKey:     apiKey,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte("api:"+apiKey)),
	}, nil
}

// APIKey returns the credential the client was created with.
func (c *Client) APIKey() string { return c.apiKey }

// Stats returns a point-in-time copy of the request counters.
func (c *Client) Stats() Stats {
	return Stats{
		TotalRequests:  c.totalReqs.Load(),
		TotalErrors:    c.totalErrors.Load(),
		Retries:        c.retries.Load(),
		RateLimitWaits: c.limitWaits.Load(),
	}
}

// addCommonHeaders sets the headers every API request carries.
func (c *Client) addCommonHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	if c.cfg.appIdentifier != "" {
		req.Header.Set("User-Agent", c.cfg.appIdentifier)
	}
}

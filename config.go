package tinify

import (
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Option configures a Client.
type Option func(*config)

type config struct {
	appIdentifier string
	timeout       time.Duration
	retry         RetryConfig
	rateLimit     RateLimit
	httpClient    *http.Client
	logger        logrus.FieldLogger

	// shrink is the upload endpoint; tests point it at a local server.
	shrink string
}

// RetryConfig bounds the retry loop for requests that fail with a retryable
// error. The delay before attempt n+1 is BaseDelay * BackoffFactor^(n-1),
// capped at MaxDelay.
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the retry policy used when none is given:
// 3 attempts, 100ms base delay doubling up to 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RateLimit is a token bucket: sustained throughput is RequestsPerMinute,
// with up to BurstCapacity requests admitted back to back.
type RateLimit struct {
	RequestsPerMinute int
	BurstCapacity     int
}

// DefaultRateLimit returns the client-side throttle used when none is given:
// 100 requests per minute with a burst of 10.
func DefaultRateLimit() RateLimit {
	return RateLimit{RequestsPerMinute: 100, BurstCapacity: 10}
}

func defaultConfig() *config {
	nop := logrus.New()
	nop.SetOutput(io.Discard)
	return &config{
		timeout:   30 * time.Second,
		retry:     DefaultRetryConfig(),
		rateLimit: DefaultRateLimit(),
		logger:    nop,
		shrink:    shrinkEndpoint,
	}
}

// WithAppIdentifier sets a User-Agent string identifying the calling
// application, e.g. "MyApp/1.0".
func WithAppIdentifier(id string) Option {
	return func(c *config) { c.appIdentifier = id }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryConfig replaces the default retry policy. Zero or negative fields
// fall back to their defaults.
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *config) {
		def := DefaultRetryConfig()
		if rc.MaxAttempts <= 0 {
			rc.MaxAttempts = def.MaxAttempts
		}
		if rc.BaseDelay <= 0 {
			rc.BaseDelay = def.BaseDelay
		}
		if rc.MaxDelay <= 0 {
			rc.MaxDelay = def.MaxDelay
		}
		if rc.BackoffFactor < 1 {
			rc.BackoffFactor = def.BackoffFactor
		}
		c.retry = rc
	}
}

// WithRateLimit replaces the default client-side throttle. Zero or negative
// fields fall back to their defaults.
func WithRateLimit(rl RateLimit) Option {
	return func(c *config) {
		def := DefaultRateLimit()
		if rl.RequestsPerMinute <= 0 {
			rl.RequestsPerMinute = def.RequestsPerMinute
		}
		if rl.BurstCapacity <= 0 {
			rl.BurstCapacity = def.BurstCapacity
		}
		c.rateLimit = rl
	}
}

// WithHTTPClient sets a custom underlying *http.Client.
// The timeout option is ignored when a custom client is provided.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger routes the client's request and retry logs to l. By default
// logs are discarded.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

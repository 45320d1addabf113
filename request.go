package tinify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxErrorBody caps how much of an error response is read for its payload.
const maxErrorBody = 1 << 20

// post sends body to url. Bodies that look like JSON (leading '{' or '[')
// are tagged application/json, anything else is sent as opaque binary.
func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, url, body, contentTypeFor(body))
}

// get fetches url, typically the processed image behind a Source location.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, "")
}

// do runs the request under the rate limiter and retry policy. The body is
// held as bytes so every attempt replays it from the start. The loop always
// returns from inside: the final attempt's error comes back unchanged, and
// non-retryable errors end the loop immediately.
func (c *Client) do(ctx context.Context, method, url string, body []byte, contentType string) (*http.Response, error) {
	log := c.cfg.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"method":     method,
		"url":        url,
	})

	delay := c.cfg.retry.BaseDelay
	if delay > c.cfg.retry.MaxDelay {
		delay = c.cfg.retry.MaxDelay
	}
	for attempt := 1; ; attempt++ {
		if err := c.waitLimiter(ctx); err != nil {
			return nil, err
		}
		c.totalReqs.Add(1)

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}

		log.WithField("attempt", attempt).Info("sending request")
		resp, err := c.send(ctx, method, url, rd, contentType)
		if err == nil {
			return resp, nil
		}
		c.totalErrors.Add(1)

		if attempt >= c.cfg.retry.MaxAttempts || !IsRetryable(err) {
			return nil, err
		}

		log.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": c.cfg.retry.MaxAttempts,
			"delay":        delay,
			"error":        err,
		}).Warn("request failed, retrying")
		c.retries.Add(1)

		select {
		case <-ctx.Done():
			return nil, wrapError(KindConnection, ctx.Err(), "retry wait")
		case <-time.After(delay):
		}
		delay = nextDelay(c.cfg.retry, delay)
	}
}

// postStream sends a request body straight from r without buffering it.
// Streamed bodies cannot be replayed, so the request is made exactly once;
// it still goes through the rate limiter.
func (c *Client) postStream(ctx context.Context, url string, r io.Reader, contentType string) (*http.Response, error) {
	if err := c.waitLimiter(ctx); err != nil {
		return nil, err
	}
	c.totalReqs.Add(1)

	c.cfg.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"method":     http.MethodPost,
		"url":        url,
	}).Info("sending streamed request")

	resp, err := c.send(ctx, http.MethodPost, url, r, contentType)
	if err != nil {
		c.totalErrors.Add(1)
		return nil, err
	}
	return resp, nil
}

// --- internal helpers ---

// send performs one HTTP attempt and classifies the outcome.
func (c *Client) send(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, wrapError(KindConnection, err, "build request")
	}
	c.addCommonHeaders(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapError(KindConnection, err, strings.ToLower(method)+" "+url)
	}
	return c.classify(resp)
}

// classify maps a non-2xx response onto the error taxonomy. Successful
// responses pass through with the body unread.
func (c *Client) classify(resp *http.Response) (*http.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))

	message := "Unknown error"
	var errType string
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			message = payload.Message
		}
		errType = payload.Error
	}

	c.cfg.logger.WithFields(logrus.Fields{
		"status":     status,
		"error_type": errType,
		"message":    message,
	}).Debug("api error response")

	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized:
		if strings.Contains(lower, "credentials") {
			return nil, &Error{Kind: KindInvalidAPIKey, Message: message, Type: errType, Status: status}
		}
		return nil, &Error{Kind: KindAccount, Message: message, Type: errType, Status: status}
	case status == http.StatusTooManyRequests:
		if strings.Contains(lower, "quota") {
			return nil, &Error{Kind: KindQuotaExceeded, Message: message, Type: errType, Status: status}
		}
		return nil, &Error{Kind: KindRateLimited, Message: message, Type: errType, Status: status, RetryAfter: retryAfter}
	case status >= 400 && status < 500:
		return nil, &Error{Kind: KindClient, Message: message, Type: errType, Status: status}
	case status >= 500 && status < 600:
		return nil, &Error{Kind: KindServer, Message: message, Type: errType, Status: status}
	default:
		return nil, &Error{Kind: KindUnknown, Message: message, Type: errType, Status: status}
	}
}

// waitLimiter admits one request through the token bucket, blocking until a
// token is available or ctx ends.
func (c *Client) waitLimiter(ctx context.Context) error {
	if c.limiter.Allow() {
		return nil
	}
	c.limitWaits.Add(1)
	c.cfg.logger.Warn("rate limit reached, waiting for a slot")
	if err := c.limiter.Wait(ctx); err != nil {
		return wrapError(KindConnection, err, "rate limit wait")
	}
	return nil
}

// nextDelay advances the backoff by the configured factor, never past
// MaxDelay.
func nextDelay(rc RetryConfig, delay time.Duration) time.Duration {
	next := float64(delay) * rc.BackoffFactor
	if next > float64(rc.MaxDelay) {
		return rc.MaxDelay
	}
	return time.Duration(next)
}

// contentTypeFor picks the request content type from the body's first byte.
func contentTypeFor(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if body[0] == '{' || body[0] == '[' {
		return "application/json"
	}
	return "application/octet-stream"
}

// parseRetryAfter parses a Retry-After header value. Both delta-seconds and
// HTTP-date forms are accepted; an absent or unparseable value defaults to
// 60 seconds per the API contract.
func parseRetryAfter(val string) time.Duration {
	const fallback = 60 * time.Second

	val = strings.TrimSpace(val)
	if val == "" {
		return fallback
	}

	if secs, err := strconv.ParseFloat(val, 64); err == nil && secs >= 0 {
		return time.Duration(math.Ceil(secs)) * time.Second
	}

	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

// ensureClosed drains and closes a response body so the underlying
// connection can be reused.
func ensureClosed(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, maxErrorBody)
	resp.Body.Close()
}

package tinify

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies every failure surfaced by this package. The set is closed:
// callers can switch over it exhaustively without a default surprise.
type Kind int

const (
	// KindUnknown covers responses and failures no other kind matches.
	KindUnknown Kind = iota

	// KindInvalidAPIKey means the API rejected the credential (401 with a
	// credentials message) or the client was built without one.
	KindInvalidAPIKey

	// KindQuotaExceeded means the monthly compression allowance is spent.
	KindQuotaExceeded

	// KindFileTooLarge means the payload exceeds MaxUploadSize.
	KindFileTooLarge

	// KindUnsupportedFormat means the file extension or media type is not
	// one the API accepts.
	KindUnsupportedFormat

	// KindFileNotFound means the local input path does not exist.
	KindFileNotFound

	// KindRateLimited means the API throttled the request (429). The error
	// carries the server-requested wait in RetryAfter.
	KindRateLimited

	// KindInvalidDimensions means a resize was asked for with no usable
	// width or height, or a dimension above MaxDimension.
	KindInvalidDimensions

	// KindURLParse means a source URL could not be parsed into an absolute
	// URL with a host.
	KindURLParse

	// KindAccount means a 401 unrelated to credentials, e.g. a suspended
	// account.
	KindAccount

	// KindClient means a 4xx the caller must fix before retrying.
	KindClient

	// KindServer means a 5xx on the API side.
	KindServer

	// KindConnection means the request never produced a response: DNS, TLS,
	// timeouts, and cancelled contexts all land here.
	KindConnection

	// KindIO means a local filesystem or stream failure.
	KindIO

	// KindJSON means a request body could not be encoded.
	KindJSON
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown error",
	KindInvalidAPIKey:     "invalid api key",
	KindQuotaExceeded:     "quota exceeded",
	KindFileTooLarge:      "file too large",
	KindUnsupportedFormat: "unsupported format",
	KindFileNotFound:      "file not found",
	KindRateLimited:       "rate limit exceeded",
	KindInvalidDimensions: "invalid dimensions",
	KindURLParse:          "url parse error",
	KindAccount:           "account error",
	KindClient:            "client error",
	KindServer:            "server error",
	KindConnection:        "connection error",
	KindIO:                "io error",
	KindJSON:              "json error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown error"
}

// Retryable reports whether a later attempt of the same request may succeed
// without any change by the caller. Only transport failures, 5xx responses
// and throttling qualify; everything else needs caller intervention.
func (k Kind) Retryable() bool {
	switch k {
	case KindConnection, KindServer, KindRateLimited:
		return true
	}
	return false
}

// Error is the concrete error type returned by every operation in this
// package. Use errors.As to recover it, or errors.Is with an *Error carrying
// just a Kind to match by category.
type Error struct {
	Kind    Kind
	Message string

	// Type is the error class reported by the API payload, e.g.
	// "Unauthorized". Empty when the response carried none.
	Type string

	// Status is the HTTP status that produced the error, 0 for failures
	// that never reached the API.
	Status int

	// RetryAfter is the wait requested by the server for KindRateLimited.
	RetryAfter time.Duration

	cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("tinify: ")
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same Kind, so
// errors.Is(err, &Error{Kind: KindQuotaExceeded}) works as a category test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Retryable reports whether the error's kind is retryable.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// ErrBodyConsumed is returned when a Result body is read a second time.
var ErrBodyConsumed = &Error{Kind: KindIO, Message: "response body already consumed"}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Retryable()
}

// KindOf extracts the Kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return KindUnknown
	}
	return e.Kind
}

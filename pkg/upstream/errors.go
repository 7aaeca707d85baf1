// Package upstream holds the HTTP error types and retry policy shared by the
// clients that talk to third-party services (flight feed, geocoder).
package upstream

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError represents an HTTP 429 Too Many Requests response.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Headers    RateLimitHeaders
}

// RateLimitHeaders contains rate limit information from response headers.
// Fields are -1 when the service does not send them.
type RateLimitHeaders struct {
	Limit     int       // X-RateLimit-Limit
	Remaining int       // X-RateLimit-Remaining
	Reset     time.Time // X-RateLimit-Reset
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// IsRateLimitError checks if an error is, or wraps, a rate limit error.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// StatusError is any other non-success HTTP response.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// CheckResponse converts a non-2xx response into a typed error.
// The body is not closed.
func CheckResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    service + ": rate limit exceeded",
			Headers:    extractRateLimitHeaders(resp.Header),
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
}

// IsTemporary reports whether retrying err may succeed:
// rate limiting, 5xx responses and network timeouts.
func IsTemporary(err error) bool {
	if _, ok := IsRateLimitError(err); ok {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// parseRetryAfter supports both delay-seconds and HTTP-date forms.
//
//	Retry-After: 30                            -> 30 seconds
//	Retry-After: Wed, 21 Oct 2015 07:28:00 GMT -> duration until that time
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(retryTime); d > 0 {
			return d
		}
	}

	return 0
}

func extractRateLimitHeaders(headers http.Header) RateLimitHeaders {
	rlh := RateLimitHeaders{Limit: -1, Remaining: -1}

	if v, ok := headerInt(headers, "X-RateLimit-Limit", "X-Rate-Limit-Limit"); ok {
		rlh.Limit = v
	}
	if v, ok := headerInt(headers, "X-RateLimit-Remaining", "X-Rate-Limit-Remaining"); ok {
		rlh.Remaining = v
	}
	if v, ok := headerInt(headers, "X-RateLimit-Reset", "X-Rate-Limit-Reset"); ok {
		rlh.Reset = time.Unix(int64(v), 0)
	}

	return rlh
}

// headerInt returns the first of names that parses as an integer.
func headerInt(headers http.Header, names ...string) (int, bool) {
	for _, name := range names {
		if raw := headers.Get(name); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

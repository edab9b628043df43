package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports a fetch that exceeded the per-request timeout.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Cause   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetch %s: timed out after %s", e.URL, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// HTTPError reports a response with a non-2xx status.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP status %d", e.URL, e.StatusCode)
}

// BlockedError reports a bot-wall or challenge page detected in the response.
type BlockedError struct {
	URL        string
	StatusCode int
	Source     string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("fetch %s: blocked by %s (status %d)", e.URL, e.Source, e.StatusCode)
}

// RobotsError reports a content URL disallowed by the host's robots.txt.
type RobotsError struct {
	URL string
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("fetch %s: disallowed by robots.txt", e.URL)
}

// Error is any other per-URL fetch failure: a malformed URL, a connection
// error, an unsupported content type.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsSkippable reports whether err is confined to a single URL, so that the
// caller should move on to the next one. Cancellation of the caller's own
// context is not skippable.
func IsSkippable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var (
		timeoutErr *TimeoutError
		httpErr    *HTTPError
		blockedErr *BlockedError
		robotsErr  *RobotsError
		fetchErr   *Error
	)
	switch {
	case errors.As(err, &timeoutErr),
		errors.As(err, &httpErr),
		errors.As(err, &blockedErr),
		errors.As(err, &robotsErr):
		return true
	case errors.As(err, &fetchErr):
		return !errors.Is(err, context.DeadlineExceeded)
	}
	return false
}

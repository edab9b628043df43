// Package storage defines the fetch audit log: one record per HTTP attempt
// made by the fetcher. Records carry outcome metadata only, never page bodies.
package storage

import (
	"context"
	"time"
)

// Outcome classifies how a fetch attempt ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeHTTPError Outcome = "http_error"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeRobots    Outcome = "robots_disallowed"
	OutcomeError     Outcome = "error"
)

// FetchRecord is the audit entry for a single fetch attempt.
type FetchRecord struct {
	ID           string        `json:"id"`
	URL          string        `json:"url"`
	Kind         string        `json:"kind"` // "search", "content" or "robots"
	Domain       string        `json:"domain"`
	StatusCode   int           `json:"status_code"`
	Bytes        int           `json:"bytes"`
	Duration     time.Duration `json:"duration"`
	Outcome      Outcome       `json:"outcome"`
	DetectedBot  bool          `json:"detected_bot"`
	DetectionSrc string        `json:"detection_src,omitempty"` // e.g. "Cloudflare", "Akamai"
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Failed reports whether the attempt produced no usable body.
func (r *FetchRecord) Failed() bool {
	return r.Outcome != OutcomeOK
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	URL        string
	Domain     string
	Kind       string
	FailedOnly bool
	Since      *time.Time
	Limit      int
	Offset     int
}

// Match reports whether r passes the filter's field conditions. Limit and
// Offset are not considered.
func (f Filter) Match(r *FetchRecord) bool {
	if f.URL != "" && r.URL != f.URL {
		return false
	}
	if f.Domain != "" && r.Domain != f.Domain {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.FailedOnly && !r.Failed() {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Backend stores and queries fetch records. Query returns newest first.
type Backend interface {
	Save(ctx context.Context, record *FetchRecord) error
	Query(ctx context.Context, filter Filter) ([]*FetchRecord, error)
	Close() error
}

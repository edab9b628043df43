// Package planner turns a free-text query and an optional domain filter into
// one search request per selected guideline source.
package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FranksOps/medguide/internal/registry"
)

var (
	// ErrInvalidQuery is returned for an empty or whitespace-only query.
	ErrInvalidQuery = errors.New("query must not be empty")
	// ErrNoMatchingDomains is returned when a domain filter names no
	// registered source.
	ErrNoMatchingDomains = errors.New("no supported domains matched the filter")
)

// NoMatchError reports a domain filter that matched nothing. It carries the
// supported domains so callers can tell the user what is valid.
type NoMatchError struct {
	Requested []string
	Supported []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%s %v; supported domains: %s",
		ErrNoMatchingDomains, e.Requested, strings.Join(e.Supported, ", "))
}

func (e *NoMatchError) Unwrap() error {
	return ErrNoMatchingDomains
}

// SearchRequest is one (query, source) pair to be searched.
type SearchRequest struct {
	Source registry.Source
	// Query is the caller's text, trimmed but not escaped.
	Query string
}

// Planner selects sources from a registry.
type Planner struct {
	reg *registry.Registry
}

// New returns a planner over reg.
func New(reg *registry.Registry) *Planner {
	return &Planner{reg: reg}
}

// Plan returns one request per selected source, in registry order.
//
// An empty filter selects every source. Unknown or blank names in a
// non-empty filter are skipped; a filter in which nothing is recognised
// fails with a *NoMatchError.
func (p *Planner) Plan(query string, domains []string) ([]SearchRequest, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	all := p.reg.All()

	filter := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		if n := registry.Normalize(d); n != "" {
			filter[n] = struct{}{}
		}
	}

	reqs := make([]SearchRequest, 0, len(all))
	for _, src := range all {
		if len(domains) > 0 {
			if _, ok := filter[src.Domain]; !ok {
				continue
			}
		}
		reqs = append(reqs, SearchRequest{Source: src, Query: query})
	}

	if len(reqs) == 0 {
		return nil, &NoMatchError{Requested: domains, Supported: p.reg.Domains()}
	}
	return reqs, nil
}

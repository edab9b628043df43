// Package registry holds the fixed set of guideline sources the service
// searches, keyed by hostname.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotFound is returned by Lookup for a domain that is not registered.
var ErrNotFound = errors.New("registry: domain not supported")

// Strategy selects the content extraction algorithm for a source.
type Strategy string

const (
	StrategyNICE    Strategy = "nice"
	StrategyRACGP   Strategy = "racgp"
	StrategyGeneric Strategy = "generic"
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyNICE, StrategyRACGP, StrategyGeneric:
		return true
	}
	return false
}

// DuckDuckGoTemplate is the search template shared by every default source.
// {domain} and {query} are substituted by Source.SearchURL.
const DuckDuckGoTemplate = "https://duckduckgo.com/html/?q=site:{domain}+{query}"

// Source describes one guideline website.
type Source struct {
	Domain         string   `json:"domain"`
	Name           string   `json:"name"`
	SearchTemplate string   `json:"search_template"`
	Strategy       Strategy `json:"strategy"`
}

// SearchURL expands the source's template for query. The query is escaped
// for use in a URL query string; the template is trusted as written.
func (s Source) SearchURL(query string) string {
	r := strings.NewReplacer(
		"{domain}", s.Domain,
		"{query}", url.QueryEscape(strings.TrimSpace(query)),
	)
	return r.Replace(s.SearchTemplate)
}

// Registry is an ordered, immutable set of sources.
type Registry struct {
	sources []Source
	index   map[string]int
}

// New builds a registry from sources, preserving their order. Domains are
// normalised with Normalize and must be unique; every source needs a valid
// strategy and a template containing {query}.
func New(sources ...Source) (*Registry, error) {
	r := &Registry{
		sources: make([]Source, 0, len(sources)),
		index:   make(map[string]int, len(sources)),
	}
	for _, src := range sources {
		src.Domain = Normalize(src.Domain)
		if src.Domain == "" {
			return nil, errors.New("registry: source with empty domain")
		}
		if _, dup := r.index[src.Domain]; dup {
			return nil, fmt.Errorf("registry: duplicate domain %q", src.Domain)
		}
		if !src.Strategy.Valid() {
			return nil, fmt.Errorf("registry: %s: unknown strategy %q", src.Domain, src.Strategy)
		}
		if !strings.Contains(src.SearchTemplate, "{query}") {
			return nil, fmt.Errorf("registry: %s: search template has no {query} placeholder", src.Domain)
		}
		if src.Name == "" {
			src.Name = src.Domain
		}
		r.index[src.Domain] = len(r.sources)
		r.sources = append(r.sources, src)
	}
	return r, nil
}

// MustNew is New for static tables; it panics on invalid input.
func MustNew(sources ...Source) *Registry {
	r, err := New(sources...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry of built-in guideline sources.
func Default() *Registry {
	return MustNew(
		Source{Domain: "nice.org.uk", Name: "NICE Guidelines", SearchTemplate: DuckDuckGoTemplate, Strategy: StrategyNICE},
		Source{Domain: "racgp.org.au", Name: "RACGP Guidelines", SearchTemplate: DuckDuckGoTemplate, Strategy: StrategyRACGP},
		Source{Domain: "who.int", Name: "WHO Guidelines", SearchTemplate: DuckDuckGoTemplate, Strategy: StrategyGeneric},
		Source{Domain: "cdc.gov", Name: "CDC Guidelines", SearchTemplate: DuckDuckGoTemplate, Strategy: StrategyGeneric},
	)
}

// Lookup returns the source registered for domain.
func (r *Registry) Lookup(domain string) (Source, error) {
	i, ok := r.index[Normalize(domain)]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrNotFound, domain)
	}
	return r.sources[i], nil
}

// All returns the sources in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Domains returns the registered domain keys in registration order.
func (r *Registry) Domains() []string {
	out := make([]string, len(r.sources))
	for i, s := range r.sources {
		out[i] = s.Domain
	}
	return out
}

// Normalize lowercases a domain and strips surrounding space, a scheme, a
// path, and a leading "www.", so "https://www.NICE.org.uk/" matches "nice.org.uk".
func Normalize(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSuffix(d, ".")
	return strings.TrimPrefix(d, "www.")
}

// HostMatches reports whether host is domain or one of its subdomains.
func HostMatches(host, domain string) bool {
	h := strings.TrimSuffix(strings.ToLower(host), ".")
	d := Normalize(domain)
	if d == "" {
		return false
	}
	return h == d || strings.HasSuffix(h, "."+d)
}

// Package serp recovers candidate guideline links from search-engine result
// pages.
package serp

import (
	"net/url"
	"strings"

	"github.com/FranksOps/medguide/internal/registry"
)

// CandidateLink is a guideline page reference discovered on a results page.
type CandidateLink struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Domain string `json:"domain"`
}

// Parser abstracts a search backend's result markup. Implementations never
// fail: a page they cannot make sense of yields no links.
type Parser interface {
	ExtractLinks(src registry.Source, html []byte, pageURL string) []CandidateLink
}

// Unwrap returns the destination embedded in a search redirector URL such as
// //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.org%2F. Any href without a
// usable uddg parameter is returned unchanged.
func Unwrap(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	target := u.Query().Get("uddg")
	if target == "" {
		return href
	}
	dest, err := url.Parse(target)
	if err != nil || !dest.IsAbs() {
		return href
	}
	return target
}

// normalizeLink resolves href against base, unwraps it and checks it belongs
// to domain. It returns the cleaned absolute URL and whether it is usable.
func normalizeLink(href string, base *url.URL, domain string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	// Redirector links may be relative to the results page, so unwrap after
	// resolution.
	unwrapped := Unwrap(u.String())
	if unwrapped != u.String() {
		if u, err = url.Parse(unwrapped); err != nil {
			return "", false
		}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" || !registry.HostMatches(u.Hostname(), domain) {
		return "", false
	}

	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

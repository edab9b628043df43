package serp

import (
	"bytes"
	"net/url"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/medguide/internal/registry"
)

// DefaultMaxLinks caps the candidates taken from one results page.
const DefaultMaxLinks = 5

// minFallbackTitle is the shortest anchor text accepted when falling back to
// arbitrary anchors; shorter texts are navigation ("Next", "Feedback").
const minFallbackTitle = 11

// resultSelectors are tried in order; the first group yielding any usable
// link wins.
var resultSelectors = []string{
	"a.result__a",
	".result__title a",
	"a[href]",
}

// DuckDuckGo parses the markup of DuckDuckGo's HTML-only results page.
type DuckDuckGo struct {
	// MaxLinks caps the links returned per page. Zero means DefaultMaxLinks.
	MaxLinks int
}

// ExtractLinks returns the results on html that point into src.Domain, in
// page order, without duplicates.
func (d DuckDuckGo) ExtractLinks(src registry.Source, html []byte, pageURL string) []CandidateLink {
	maxLinks := d.MaxLinks
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinks
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var base *url.URL
	if pageURL != "" {
		base, _ = url.Parse(pageURL)
	}

	for i, sel := range resultSelectors {
		fallback := i == len(resultSelectors)-1
		links := d.collect(doc.Find(sel), src, base, maxLinks, fallback)
		if len(links) > 0 {
			return links
		}
	}
	return []CandidateLink{}
}

func (d DuckDuckGo) collect(sel *goquery.Selection, src registry.Source, base *url.URL, maxLinks int, fallback bool) []CandidateLink {
	seen := make(map[string]bool)
	var links []CandidateLink

	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, exists := s.Attr("href")
		if !exists {
			return true
		}
		link, ok := normalizeLink(href, base, src.Domain)
		if !ok || seen[link] {
			return true
		}

		title := collapseSpace(s.Text())
		if fallback && utf8.RuneCountInString(title) < minFallbackTitle {
			return true
		}

		seen[link] = true
		links = append(links, CandidateLink{
			URL:    link,
			Title:  title,
			Domain: src.Domain,
		})
		return len(links) < maxLinks
	})

	return links
}

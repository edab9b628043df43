package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/medguide/internal/registry"
)

// commonNoise is removed from every page before locating content.
var commonNoise = []string{
	"script", "style", "noscript", "iframe", "svg", "template",
	"nav", "header", "footer", "aside", "form", "button",
	".navigation", ".breadcrumb", ".breadcrumbs", ".advertisement",
	".sidebar", ".menu", ".ads", ".cookie-banner", ".skip-link",
	"[aria-hidden=true]", "[role=navigation]",
}

// strategy locates the main content region of a page. Each entry in
// containers is a selector group; the first group whose matches carry text
// wins. Pages matching none fall through to the generic groups, then body.
type strategy struct {
	containers []string
	noise      []string
}

var genericStrategy = strategy{
	containers: []string{
		"main, article",
		".content, .main-content, .article-content, .post-content, .entry-content, #content, .content-wrapper, .body-content, .text-content",
	},
}

var strategies = map[registry.Strategy]strategy{
	registry.StrategyNICE: {
		containers: []string{
			".chapter",
			"#content-start",
			".guideline-content",
			"main article",
		},
		noise: []string{".in-page-nav", ".stacked-nav", ".page-header__breadcrumbs"},
	},
	registry.StrategyRACGP: {
		containers: []string{
			".guideline-body",
			".content-wrapper",
			".main-content",
		},
		noise: []string{".social-share", ".related-content"},
	},
	registry.StrategyGeneric: genericStrategy,
}

func strategyFor(s registry.Strategy) strategy {
	if st, ok := strategies[s]; ok {
		return st
	}
	return genericStrategy
}

// locate returns the content region and whether one of the strategy's own
// containers matched.
func (s strategy) locate(doc *goquery.Document) (*goquery.Selection, bool) {
	if region := firstGroup(doc, s.containers); region != nil {
		return region, true
	}
	if region := firstGroup(doc, genericStrategy.containers); region != nil {
		return region, false
	}
	return doc.Find("body"), false
}

func firstGroup(doc *goquery.Document, groups []string) *goquery.Selection {
	for _, group := range groups {
		sel := doc.Find(group)
		if sel.Length() == 0 {
			continue
		}
		// Drop matches nested inside another match of the same group so text
		// is not collected twice.
		sel = sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(group).Length() == 0
		})
		if strings.TrimSpace(sel.Text()) != "" {
			return sel
		}
	}
	return nil
}

// Package extract turns guideline page HTML into cleaned, length-bounded
// plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/medguide/internal/guideline"
	"github.com/FranksOps/medguide/internal/registry"
)

// DefaultMaxChars bounds a document's content, marker included.
const DefaultMaxChars = 8000

// ErrExtractionEmpty is returned when no usable text remains after cleaning.
var ErrExtractionEmpty = errors.New("extract: no content")

// Extractor extracts guideline documents from HTML. It holds no per-call
// state and is safe for concurrent use.
type Extractor struct {
	maxChars int
	logger   *slog.Logger
}

// Config tunes an Extractor.
type Config struct {
	// MaxChars caps the content length in characters. Zero means DefaultMaxChars.
	MaxChars int
	Logger   *slog.Logger
}

// New returns an Extractor.
func New(cfg Config) *Extractor {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{maxChars: cfg.MaxChars, logger: cfg.Logger}
}

// MaxChars returns the configured content cap.
func (e *Extractor) MaxChars() int {
	return e.maxChars
}

// Extract parses html fetched from pageURL using src's strategy.
// searchTitle is the title shown on the results page, used when the page
// itself carries none.
func (e *Extractor) Extract(src registry.Source, html []byte, pageURL, searchTitle string) (guideline.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return guideline.Document{}, fmt.Errorf("extract %s: parse html: %w", pageURL, err)
	}

	strat := strategyFor(src.Strategy)

	// Head metadata and the page heading are read before noise removal, which
	// can take out a title h1 sitting above the content region. Site chrome
	// headings such as a logo h1 in the banner never count as the title.
	ogTitle, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	headTitle := doc.Find("head title").First().Text()
	pageH1 := doc.Find("h1").Not(chromeHeadings).First().Text()

	doc.Find(strings.Join(slices.Concat(commonNoise, strat.noise), ", ")).Remove()

	region, matched := strat.locate(doc)
	if !matched && src.Strategy != registry.StrategyGeneric {
		e.logger.Debug("content marker not found, using generic extraction",
			"url", pageURL, "strategy", src.Strategy)
	}

	content := blockText(region)
	if content == "" {
		return guideline.Document{}, fmt.Errorf("extract %s: %w", pageURL, ErrExtractionEmpty)
	}

	title := firstNonEmpty(
		region.Find("h1").First().Text(),
		pageH1,
		ogTitle,
		headTitle,
		searchTitle,
		placeholderTitle(pageURL),
	)

	return guideline.Document{
		Title:      title,
		SourceName: src.Name,
		URL:        pageURL,
		Content:    Truncate(content, e.maxChars),
	}, nil
}

// chromeHeadings matches headings that belong to site navigation rather than
// the document.
const chromeHeadings = "header h1, nav h1, footer h1, [role=banner] h1, [role=navigation] h1"

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.Join(strings.Fields(c), " "); c != "" {
			return c
		}
	}
	return ""
}

// placeholderTitle derives a title from the last path segment of rawURL,
// or its host when the path is empty.
func placeholderTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" || seg == "" {
		if u.Hostname() != "" {
			return u.Hostname()
		}
		return rawURL
	}
	seg = strings.TrimSuffix(seg, path.Ext(seg))
	seg = strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	if seg = strings.TrimSpace(seg); seg == "" {
		return u.Hostname()
	}
	return seg
}

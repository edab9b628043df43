// Package pipeline answers a guideline query end to end: it plans one search
// per source, fetches result pages, interleaves the candidate links and
// extracts documents until enough have been collected.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/FranksOps/medguide/internal/extract"
	"github.com/FranksOps/medguide/internal/guideline"
	"github.com/FranksOps/medguide/internal/metrics"
	"github.com/FranksOps/medguide/internal/planner"
	"github.com/FranksOps/medguide/internal/registry"
	"github.com/FranksOps/medguide/internal/scraper"
	"github.com/FranksOps/medguide/internal/serp"
)

const (
	DefaultResults = 3
	MaxResultsCap  = 5
)

// Fetcher retrieves search and guideline pages. *scraper.Fetcher satisfies it.
type Fetcher interface {
	FetchSearch(ctx context.Context, req planner.SearchRequest) ([]byte, string, error)
	Fetch(ctx context.Context, url string, kind scraper.Kind) ([]byte, error)
}

// Config wires an Orchestrator.
type Config struct {
	Registry  *registry.Registry
	Fetcher   Fetcher
	Parser    serp.Parser
	Extractor *extract.Extractor
	// DefaultResults is used when a request asks for zero results.
	DefaultResults int
	// MaxResults is the upper bound requests are clamped to.
	MaxResults int
	// DisableBroadening turns off the retry without "management" and
	// "guidelines" after a search that found nothing.
	DisableBroadening bool
	Logger            *slog.Logger
}

// Request is one guideline search.
type Request struct {
	Query string
	// Domains restricts the search to these registry domains. Empty means all.
	Domains []string
	// MaxResults is clamped to [1, Config.MaxResults]; zero means the default.
	MaxResults int
}

// Orchestrator runs guideline searches. Concurrent searches are independent;
// they share only the registry and the Fetcher, whose limiter spaces out all
// of their requests.
type Orchestrator struct {
	cfg     Config
	planner *planner.Planner
	logger  *slog.Logger
}

// New validates cfg and fills its defaults.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, errors.New("pipeline: registry is nil")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("pipeline: fetcher is nil")
	}
	if cfg.Parser == nil {
		cfg.Parser = serp.DuckDuckGo{}
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New(extract.Config{Logger: cfg.Logger})
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = MaxResultsCap
	}
	if cfg.DefaultResults <= 0 {
		cfg.DefaultResults = DefaultResults
	}
	if cfg.DefaultResults > cfg.MaxResults {
		cfg.DefaultResults = cfg.MaxResults
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		cfg:     cfg,
		planner: planner.New(cfg.Registry),
		logger:  cfg.Logger,
	}, nil
}

// Sources lists the registered guideline sources.
func (o *Orchestrator) Sources() []registry.Source {
	return o.cfg.Registry.All()
}

// ClampResults maps a requested result count onto the supported range.
func (o *Orchestrator) ClampResults(n int) int {
	switch {
	case n == 0:
		return o.cfg.DefaultResults
	case n < 1:
		return 1
	case n > o.cfg.MaxResults:
		return o.cfg.MaxResults
	}
	return n
}

// Search returns up to the requested number of documents in the order they
// were obtained. Only planner.ErrInvalidQuery, planner.ErrNoMatchingDomains
// and cancellation of ctx fail the call; pages that cannot be fetched or
// yield no text are skipped. No documents is an empty slice, not an error.
func (o *Orchestrator) Search(ctx context.Context, req Request) ([]guideline.Document, error) {
	logger := o.logger.With("search_id", uuid.NewString())

	plans, err := o.planner.Plan(req.Query, req.Domains)
	if err != nil {
		metrics.RecordSearch("rejected", 0)
		return nil, err
	}

	limit := o.ClampResults(req.MaxResults)
	logger.Info("searching guidelines", "query", plans[0].Query, "sources", len(plans), "max_results", limit)

	docs, err := o.run(ctx, plans, limit, logger)
	if err != nil {
		metrics.RecordSearch("error", 0)
		return nil, err
	}

	if len(docs) == 0 && !o.cfg.DisableBroadening {
		if broader := Broaden(plans[0].Query); broader != "" && broader != plans[0].Query {
			logger.Info("no results, retrying with broader query", "query", broader)
			for i := range plans {
				plans[i].Query = broader
			}
			if docs, err = o.run(ctx, plans, limit, logger); err != nil {
				metrics.RecordSearch("error", 0)
				return nil, err
			}
		}
	}

	metrics.RecordSearch("ok", len(docs))
	logger.Info("search complete", "documents", len(docs))
	return docs, nil
}

func (o *Orchestrator) run(ctx context.Context, plans []planner.SearchRequest, limit int, logger *slog.Logger) ([]guideline.Document, error) {
	perSource := make([][]serp.CandidateLink, 0, len(plans))
	sources := make(map[string]registry.Source, len(plans))

	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, searchURL, err := o.cfg.Fetcher.FetchSearch(ctx, plan)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("search page unavailable, skipping source", "domain", plan.Source.Domain, "err", err)
			continue
		}
		links := o.cfg.Parser.ExtractLinks(plan.Source, body, searchURL)
		logger.Debug("candidate links found", "domain", plan.Source.Domain, "count", len(links))
		perSource = append(perSource, links)
		sources[plan.Source.Domain] = plan.Source
	}

	docs := make([]guideline.Document, 0, limit)
	for _, link := range Interleave(perSource) {
		if len(docs) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src := sources[link.Domain]
		body, err := o.cfg.Fetcher.Fetch(ctx, link.URL, scraper.KindContent)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("skipping guideline page", "url", link.URL, "err", err)
			continue
		}

		doc, err := o.cfg.Extractor.Extract(src, body, link.URL, link.Title)
		if err != nil {
			metrics.ExtractionFailures.WithLabelValues(src.Domain, string(src.Strategy)).Inc()
			logger.Warn("no guideline text extracted", "url", link.URL, "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Interleave merges per-source link lists round-robin, dropping URLs already
// taken from an earlier position.
func Interleave(lists [][]serp.CandidateLink) []serp.CandidateLink {
	var (
		out  []serp.CandidateLink
		seen = make(map[string]bool)
	)
	for i := 0; ; i++ {
		progressed := false
		for _, list := range lists {
			if i >= len(list) {
				continue
			}
			progressed = true
			if seen[list[i].URL] {
				continue
			}
			seen[list[i].URL] = true
			out = append(out, list[i])
		}
		if !progressed {
			return out
		}
	}
}

var broadenWords = regexp.MustCompile(`(?i)\b(management|guidelines)\b`)

// Broaden drops the words "management" and "guidelines" from query.
func Broaden(query string) string {
	return strings.Join(strings.Fields(broadenWords.ReplaceAllString(query, " ")), " ")
}


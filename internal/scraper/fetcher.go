package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/FranksOps/medguide/internal/bypass"
	"github.com/FranksOps/medguide/internal/fingerprint"
	"github.com/FranksOps/medguide/internal/metrics"
	"github.com/FranksOps/medguide/internal/planner"
	"github.com/FranksOps/medguide/internal/registry"
	"github.com/FranksOps/medguide/internal/storage"
	"github.com/FranksOps/medguide/pkg/httpclient"
	"github.com/FranksOps/medguide/pkg/ratelimit"
	"github.com/FranksOps/medguide/pkg/useragent"
	"github.com/google/uuid"
)

// Kind says what a fetched page will be used for.
type Kind string

const (
	KindSearch  Kind = "search"
	KindContent Kind = "content"
	KindRobots  Kind = "robots"
)

// DefaultMinDelay is the default spacing between any two requests issued by
// one Fetcher.
const DefaultMinDelay = 1500 * time.Millisecond

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	// Limiter spaces out every request this Fetcher issues, across all
	// goroutines using it. When nil, one is built from MinDelay and Jitter.
	Limiter  *ratelimit.Limiter
	MinDelay time.Duration
	Jitter   float64
	// RespectRobots makes content fetches consult the host's robots.txt.
	RespectRobots bool
	// RobotsAgent is the product token matched against robots.txt groups.
	RobotsAgent  string
	MaxBodyBytes int64
	Detectors    []bypass.Detector
	// SearchDetectors run in addition to Detectors on search pages only.
	SearchDetectors []bypass.Detector
	// Backend, when set, receives an audit record for every attempt.
	Backend storage.Backend
	Logger  *slog.Logger
}

// Fetcher performs rate-limited GET requests and classifies their outcome.
// A single Fetcher is meant to be shared by every concurrent search in the
// process so that its limiter governs all outbound traffic.
type Fetcher struct {
	config  FetchConfig
	client  *httpclient.Client
	limiter *ratelimit.Limiter
	robots  *RobotsTxtAuditor
	logger  *slog.Logger
}

// NewFetcher initializes a new Fetcher with the given configuration.
// A negative MinDelay disables rate limiting; zero means DefaultMinDelay.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.MinDelay == 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	if cfg.RobotsAgent == "" {
		cfg.RobotsAgent = "medguide"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = httpclient.DefaultMaxBodyBytes
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if cfg.SearchDetectors == nil {
		cfg.SearchDetectors = bypass.SearchDetectors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(cfg.MinDelay, cfg.Jitter)
	}

	f := &Fetcher{
		config:  cfg,
		client:  client,
		limiter: limiter,
		logger:  cfg.Logger,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsTxtAuditor(f, cfg.Logger)
	}
	return f, nil
}

// Close releases idle connections held by the Fetcher.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Fetch retrieves targetURL and returns its body. Failures confined to this
// URL come back as *TimeoutError, *HTTPError, *BlockedError, *RobotsError or
// *Error; see IsSkippable. Cancellation of ctx is returned as ctx.Err().
func (f *Fetcher) Fetch(ctx context.Context, targetURL string, kind Kind) ([]byte, error) {
	domain := ""
	if u, err := url.Parse(targetURL); err == nil {
		domain = registry.Normalize(u.Hostname())
	}
	return f.fetch(ctx, targetURL, kind, domain)
}

// FetchSearch expands req's search template and fetches the results page.
// It returns the page body and the URL that was requested.
func (f *Fetcher) FetchSearch(ctx context.Context, req planner.SearchRequest) ([]byte, string, error) {
	searchURL := req.Source.SearchURL(req.Query)
	body, err := f.fetch(ctx, searchURL, KindSearch, req.Source.Domain)
	return body, searchURL, err
}

func (f *Fetcher) fetch(ctx context.Context, targetURL string, kind Kind, domain string) ([]byte, error) {
	rec := &storage.FetchRecord{
		ID:     uuid.NewString(),
		URL:    targetURL,
		Kind:   string(kind),
		Domain: domain,
	}

	u, err := url.Parse(targetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		rec.CreatedAt = time.Now().UTC()
		return nil, f.finish(ctx, rec, &Error{URL: targetURL, Message: "invalid URL", Cause: err})
	}

	if kind == KindContent && f.robots != nil {
		allowed, err := f.robots.IsAllowed(ctx, targetURL, f.config.RobotsAgent)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !allowed {
			rec.CreatedAt = time.Now().UTC()
			return nil, f.finish(ctx, rec, &RobotsError{URL: targetURL})
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	rec.CreatedAt = start.UTC()

	f.logger.Debug("fetching", "url", targetURL, "kind", kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		rec.Duration = time.Since(start)
		return nil, f.finish(ctx, rec, &Error{URL: targetURL, Message: "failed to create request", Cause: err})
	}
	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		rec.Duration = time.Since(start)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, f.finish(ctx, rec, &TimeoutError{URL: targetURL, Timeout: f.config.Timeout, Cause: err})
		}
		return nil, f.finish(ctx, rec, &Error{URL: targetURL, Message: "request failed", Cause: err})
	}

	body, readErr := httpclient.ReadBody(resp, f.config.MaxBodyBytes)
	rec.Duration = time.Since(start)
	rec.StatusCode = resp.StatusCode
	rec.Bytes = len(body)

	switch {
	case errors.Is(readErr, httpclient.ErrBodyTooLarge):
		f.logger.Warn("response body truncated", "url", targetURL, "limit", f.config.MaxBodyBytes)
	case readErr != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(readErr, &netErr) && netErr.Timeout() {
			return nil, f.finish(ctx, rec, &TimeoutError{URL: targetURL, Timeout: f.config.Timeout, Cause: readErr})
		}
		return nil, f.finish(ctx, rec, &Error{URL: targetURL, Message: "failed to read body", Cause: readErr})
	}

	detectors := f.config.Detectors
	if kind == KindSearch {
		detectors = slices.Concat(detectors, f.config.SearchDetectors)
	}
	detected, source := bypass.Analyze(bypass.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, detectors)
	if detected {
		rec.DetectedBot = true
		rec.DetectionSrc = source
		return nil, f.finish(ctx, rec, &BlockedError{URL: targetURL, StatusCode: resp.StatusCode, Source: source})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, f.finish(ctx, rec, &HTTPError{URL: targetURL, StatusCode: resp.StatusCode})
	}

	if kind != KindRobots && !isHTML(resp.Header.Get("Content-Type")) {
		return nil, f.finish(ctx, rec, &Error{
			URL:     targetURL,
			Message: fmt.Sprintf("unsupported content type %q", resp.Header.Get("Content-Type")),
		})
	}

	return body, f.finish(ctx, rec, nil)
}

// finish classifies err into rec, publishes the record and returns err.
func (f *Fetcher) finish(ctx context.Context, rec *storage.FetchRecord, err error) error {
	var (
		timeoutErr *TimeoutError
		httpErr    *HTTPError
		blockedErr *BlockedError
		robotsErr  *RobotsError
	)
	switch {
	case err == nil:
		rec.Outcome = storage.OutcomeOK
	case errors.As(err, &timeoutErr):
		rec.Outcome = storage.OutcomeTimeout
	case errors.As(err, &blockedErr):
		rec.Outcome = storage.OutcomeBlocked
	case errors.As(err, &httpErr):
		rec.Outcome = storage.OutcomeHTTPError
	case errors.As(err, &robotsErr):
		rec.Outcome = storage.OutcomeRobots
	default:
		rec.Outcome = storage.OutcomeError
	}
	if err != nil {
		rec.Error = err.Error()
		f.logger.Warn("fetch failed", "url", rec.URL, "kind", rec.Kind, "outcome", rec.Outcome, "err", err)
	}

	metrics.RecordFetch(rec)

	if f.config.Backend != nil {
		// The audit write must not be lost because the search was cancelled.
		saveCtx := context.WithoutCancel(ctx)
		if saveErr := f.config.Backend.Save(saveCtx, rec); saveErr != nil {
			f.logger.Error("failed to save fetch record", "url", rec.URL, "err", saveErr)
		}
	}
	return err
}

// isHTML accepts HTML media types, and a missing Content-Type since many
// guideline CMSs omit it.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return true
	}
	return false
}

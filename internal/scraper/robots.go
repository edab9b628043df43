package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor manages robots.txt fetching and enforcement.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed determines if the given URL is allowed by the host's robots.txt
// for the provided agent. A robots.txt that cannot be retrieved or parsed
// allows everything. Only a 4xx answer or a parsed file is remembered per
// origin; timeouts and server errors are retried on the next call.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, agent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	origin := u.Scheme + "://" + u.Host

	data, err := r.getOrFetch(ctx, origin)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		r.logger.Debug("robots.txt unavailable, defaulting to allow", "origin", origin, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, agent), nil
}

func (r *RobotsTxtAuditor) getOrFetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, exists := r.cache[origin]; exists {
		return data, nil
	}

	u, _ := url.Parse(origin)
	body, err := r.fetcher.fetch(ctx, origin+"/robots.txt", KindRobots, u.Hostname())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A 4xx means the site publishes no rules.
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			r.cache[origin] = nil
			return nil, nil
		}
		// Transient failures are not cached; the next call retries.
		return nil, fmt.Errorf("fetch error: %w", err)
	}

	parsed, err := robotstxt.FromBytes(body)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("parse error: %w", err)
	}

	r.cache[origin] = parsed
	return parsed, nil
}

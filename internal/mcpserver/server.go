// Package mcpserver exposes the guideline search to AI agents over the Model
// Context Protocol, on stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/FranksOps/medguide/internal/guideline"
	"github.com/FranksOps/medguide/internal/pipeline"
	"github.com/FranksOps/medguide/internal/registry"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingSearcher is returned when no searcher is provided.
var ErrMissingSearcher = errors.New("mcpserver: searcher is required")

// Searcher runs guideline searches. *pipeline.Orchestrator satisfies it.
type Searcher interface {
	Search(ctx context.Context, req pipeline.Request) ([]guideline.Document, error)
	Sources() []registry.Source
}

// Server is the medguide MCP server.
type Server struct {
	searcher Searcher
	server   *mcp.Server
	logger   *slog.Logger
	started  time.Time
}

// NewServer creates a server with the guideline tools registered.
func NewServer(searcher Searcher, logger *slog.Logger) (*Server, error) {
	if searcher == nil {
		return nil, ErrMissingSearcher
	}
	if logger == nil {
		logger = slog.Default()
	}

	impl := &mcp.Implementation{
		Name:    "medguide",
		Version: Version,
	}

	s := &Server{
		searcher: searcher,
		server:   mcp.NewServer(impl, nil),
		logger:   logger,
		started:  time.Now(),
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler serves streamable-HTTP MCP on "/" and the health check on
// "/health".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", http.HandlerFunc(s.handleHealth))
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil))
	return mux
}

// RunHTTP serves Handler on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("mcp http server listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}

// Health is the body of GET /health.
type Health struct {
	Status        string   `json:"status"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Sources       []string `json:"sources"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sources := s.searcher.Sources()
	domains := make([]string, len(sources))
	for i, src := range sources {
		domains[i] = src.Domain
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Health{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Sources:       domains,
	})
}

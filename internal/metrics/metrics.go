package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/medguide/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medguide_fetch_requests_total",
			Help: "Total number of fetch attempts by outcome",
		},
		[]string{"domain", "kind", "outcome", "detection_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medguide_fetch_duration_seconds",
			Help:    "Duration of fetch attempts in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain", "kind"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medguide_fetch_bytes_total",
			Help: "Total bytes downloaded across all fetches",
		},
		[]string{"domain"},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medguide_searches_total",
			Help: "Total number of guideline searches by result",
		},
		[]string{"result"},
	)

	SearchDocuments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medguide_search_documents",
			Help:    "Number of guideline documents returned per search",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medguide_extraction_failures_total",
			Help: "Pages that yielded no usable guideline text",
		},
		[]string{"domain", "strategy"},
	)
)

// RecordFetch updates the fetch metrics from an audit record.
func RecordFetch(rec *storage.FetchRecord) {
	if rec == nil {
		return
	}

	FetchRequestsTotal.WithLabelValues(rec.Domain, rec.Kind, string(rec.Outcome), rec.DetectionSrc).Inc()
	FetchDuration.WithLabelValues(rec.Domain, rec.Kind).Observe(rec.Duration.Seconds())
	FetchBytesTotal.WithLabelValues(rec.Domain).Add(float64(rec.Bytes))
}

// RecordSearch counts a finished search. result is "ok", "rejected" or "error".
func RecordSearch(result string, documents int) {
	SearchesTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		SearchDocuments.Observe(float64(documents))
	}
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// NewServer prepares a metrics server on addr exposing /metrics.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Stop(context.Background())
	}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/FranksOps/medguide/internal/storage"
	"github.com/google/uuid"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if MEDGUIDE_TEST_PG_DSN is set
	dsn := os.Getenv("MEDGUIDE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: MEDGUIDE_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	// Unique URL keeps reruns against a shared database independent.
	target := "https://www.who.int/publications/i/item/" + uuid.NewString()
	rec := &storage.FetchRecord{
		ID:         uuid.NewString(),
		URL:        target,
		Kind:       "content",
		Domain:     "who.int",
		StatusCode: 504,
		Duration:   30 * time.Second,
		Outcome:    storage.OutcomeTimeout,
		Error:      "timed out",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{URL: target, FailedOnly: true, Limit: 10})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(results))
	}

	got := results[0]
	if got.ID != rec.ID || got.Outcome != storage.OutcomeTimeout || got.Error != "timed out" {
		t.Errorf("Unexpected record: %+v", got)
	}
	if got.Duration != rec.Duration {
		t.Errorf("Expected duration %v, got %v", rec.Duration, got.Duration)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("Expected CreatedAt %v, got %v", rec.CreatedAt, got.CreatedAt)
	}
}

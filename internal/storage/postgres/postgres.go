package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/medguide/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS fetch_records (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	kind TEXT NOT NULL,
	domain TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	bytes INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	outcome TEXT NOT NULL,
	detected_bot BOOLEAN NOT NULL,
	detection_src TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS fetch_records_created_at ON fetch_records (created_at DESC);
`

const columns = `id, url, kind, domain, status_code, bytes, duration_ms, outcome, detected_bot, detection_src, error, created_at`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, r *storage.FetchRecord) error {
	query := `INSERT INTO fetch_records (` + columns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := b.pool.Exec(ctx, query,
		r.ID,
		r.URL,
		r.Kind,
		r.Domain,
		r.StatusCode,
		r.Bytes,
		r.Duration.Milliseconds(),
		string(r.Outcome),
		r.DetectedBot,
		r.DetectionSrc,
		r.Error,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save %s: %w", r.ID, err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.FetchRecord, error) {
	query := `SELECT ` + columns + ` FROM fetch_records WHERE 1=1`
	args := []any{}

	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(cond, len(args))
	}

	if filter.URL != "" {
		add(` AND url = $%d`, filter.URL)
	}
	if filter.Domain != "" {
		add(` AND domain = $%d`, filter.Domain)
	}
	if filter.Kind != "" {
		add(` AND kind = $%d`, filter.Kind)
	}
	if filter.FailedOnly {
		add(` AND outcome <> $%d`, string(storage.OutcomeOK))
	}
	if filter.Since != nil {
		add(` AND created_at >= $%d`, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		add(` LIMIT $%d`, filter.Limit)
	}
	if filter.Offset > 0 {
		add(` OFFSET $%d`, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.FetchRecord
	for rows.Next() {
		var r storage.FetchRecord
		var durationMs int64
		var outcome string

		err := rows.Scan(
			&r.ID, &r.URL, &r.Kind, &r.Domain, &r.StatusCode, &r.Bytes,
			&durationMs, &outcome, &r.DetectedBot, &r.DetectionSrc, &r.Error, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Outcome = storage.Outcome(outcome)
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bymarket/adradar/internal/extractor"
	apperrors "bymarket/adradar/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracked_queries (
	id             BIGSERIAL PRIMARY KEY,
	owner_id       BIGINT NOT NULL,
	url            TEXT NOT NULL,
	platform       TEXT NOT NULL,
	active         BOOLEAN NOT NULL DEFAULT TRUE,
	failure_count  INTEGER NOT NULL DEFAULT 0,
	last_polled_at TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ads (
	id           BIGSERIAL PRIMARY KEY,
	query_id     BIGINT NOT NULL REFERENCES tracked_queries(id) ON DELETE CASCADE,
	external_id  TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	price        TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	link         TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (query_id, external_id)
);
`

// PostgresGateway implements Gateway on a pgx connection pool.
type PostgresGateway struct {
	pool *pgxpool.Pool
}

// NewPostgresGateway creates and verifies a pooled Postgres gateway.
func NewPostgresGateway(ctx context.Context, databaseURL string) (*PostgresGateway, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &PostgresGateway{pool: pool}, nil
}

// EnsureSchema creates the tables if they do not exist yet.
func (g *PostgresGateway) EnsureSchema(ctx context.Context) error {
	if _, err := g.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (g *PostgresGateway) Close() {
	g.pool.Close()
}

// ListActiveQueries returns every active tracked query.
func (g *PostgresGateway) ListActiveQueries(ctx context.Context) ([]TrackedQuery, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, owner_id, url, platform, active, failure_count, last_polled_at, created_at
		FROM tracked_queries
		WHERE active
		ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewPersistence("list active queries", err)
	}
	defer rows.Close()

	var queries []TrackedQuery
	for rows.Next() {
		var q TrackedQuery
		if err := rows.Scan(&q.ID, &q.OwnerID, &q.URL, &q.Platform, &q.Active,
			&q.FailureCount, &q.LastPolledAt, &q.CreatedAt); err != nil {
			return nil, apperrors.NewPersistence("scan tracked query", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistence("iterate tracked queries", err)
	}
	return queries, nil
}

// RecordPoll updates the query's last-polled timestamp.
func (g *PostgresGateway) RecordPoll(ctx context.Context, queryID int64) error {
	_, err := g.pool.Exec(ctx,
		`UPDATE tracked_queries SET last_polled_at = now() WHERE id = $1`, queryID)
	if err != nil {
		return apperrors.NewPersistence("record poll", err)
	}
	return nil
}

// ResetFailures zeroes the consecutive-failure counter.
func (g *PostgresGateway) ResetFailures(ctx context.Context, queryID int64) error {
	_, err := g.pool.Exec(ctx,
		`UPDATE tracked_queries SET failure_count = 0 WHERE id = $1`, queryID)
	if err != nil {
		return apperrors.NewPersistence("reset failures", err)
	}
	return nil
}

// IncrementFailures bumps the counter and returns the new count.
func (g *PostgresGateway) IncrementFailures(ctx context.Context, queryID int64) (int, error) {
	var count int
	err := g.pool.QueryRow(ctx,
		`UPDATE tracked_queries SET failure_count = failure_count + 1 WHERE id = $1
		 RETURNING failure_count`, queryID).Scan(&count)
	if err != nil {
		return 0, apperrors.NewPersistence("increment failures", err)
	}
	return count, nil
}

// Deactivate marks the query inactive.
func (g *PostgresGateway) Deactivate(ctx context.Context, queryID int64) error {
	_, err := g.pool.Exec(ctx,
		`UPDATE tracked_queries SET active = FALSE WHERE id = $1`, queryID)
	if err != nil {
		return apperrors.NewPersistence("deactivate query", err)
	}
	return nil
}

// InsertAdIfAbsent stores the ad with insert-or-ignore semantics keyed
// by (query id, external id). The insert is independently idempotent, so
// partial completion of a batch at shutdown is safe to resume.
func (g *PostgresGateway) InsertAdIfAbsent(ctx context.Context, queryID int64, ad extractor.NormalizedAd) (bool, *PersistedAd, error) {
	persisted := &PersistedAd{QueryID: queryID, NormalizedAd: ad}

	err := g.pool.QueryRow(ctx, `
		INSERT INTO ads (query_id, external_id, title, description, price, image_url, link, location, address, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (query_id, external_id) DO NOTHING
		RETURNING id, created_at`,
		queryID, ad.ExternalID, ad.Title, ad.Description, ad.Price,
		ad.ImageURL, ad.Link, ad.Location, ad.Address, ad.PublishedAt).
		Scan(&persisted.ID, &persisted.CreatedAt)
	if err == nil {
		return true, persisted, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, nil, apperrors.NewPersistence("insert ad", err)
	}

	// Conflict: the pair was already stored in an earlier cycle.
	err = g.pool.QueryRow(ctx, `
		SELECT id, created_at FROM ads WHERE query_id = $1 AND external_id = $2`,
		queryID, ad.ExternalID).Scan(&persisted.ID, &persisted.CreatedAt)
	if err != nil {
		return false, nil, apperrors.NewPersistence("load existing ad", err)
	}
	return false, persisted, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/passportdog/Apify-Local-Radar/models"
)

// PostgresSink is the optional self-hosted layer-3 sink: a single table
// with a uniqueness constraint on the fingerprint, upserting on conflict so
// a repeated sighting updates last_seen instead of duplicating the row.
type PostgresSink struct {
	pool   *pgxpool.Pool
	schema string
}

// OpenPostgres connects a pooled sink. schema defaults to "public".
func OpenPostgres(ctx context.Context, dsn, schema string) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if schema == "" {
		schema = "public"
	}
	return &PostgresSink{pool: pool, schema: schema}, nil
}

// EnsureSchema creates the ads table if it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.ads (
			fingerprint     text PRIMARY KEY,
			ad_id           text,
			advertiser_id   text,
			advertiser_name text,
			keyword         text,
			location        text,
			media_type      text,
			payload         jsonb NOT NULL,
			first_seen      timestamptz NOT NULL DEFAULT now(),
			last_seen       timestamptz NOT NULL DEFAULT now()
		)`, s.schema)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// UpsertBatch writes records in one pipelined batch. Conflicting
// fingerprints update the payload and bump last_seen. Returns the number of
// rows written (inserted or updated).
func (s *PostgresSink) UpsertBatch(ctx context.Context, records []*models.RawRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s.ads
			(fingerprint, ad_id, advertiser_id, advertiser_name, keyword, location, media_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fingerprint) DO UPDATE
			SET payload = EXCLUDED.payload,
			    last_seen = now()`, s.schema)

	b := &pgx.Batch{}
	for _, rec := range records {
		b.Queue(sql,
			rec.Fingerprint,
			rec.ID,
			rec.AdvertiserID,
			rec.AdvertiserName,
			rec.Query.Keyword,
			rec.Query.Location,
			rec.MediaType,
			rec,
		)
	}

	br := s.pool.SendBatch(ctx, b)
	defer br.Close()

	written := 0
	for range records {
		if _, err := br.Exec(); err != nil {
			return written, fmt.Errorf("store: upsert batch: %w", err)
		}
		written++
	}
	return written, nil
}

// Close releases the pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

package rawstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on the fd_raw_ingest table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Exists(ctx context.Context, source, endpoint, key string, since time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM fd_raw_ingest
		   WHERE source = $1
		     AND endpoint = $2
		     AND external_key = $3
		     AND fetched_at >= $4
		 )`,
		source, endpoint, key, since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("wasFetchedSince query: %w", err)
	}
	return exists, nil
}

// InsertIfAbsent relies on the unique (source, endpoint, external_key) index:
// a racing writer gets no row back from ON CONFLICT DO NOTHING.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, source, endpoint, key string, lastModified time.Time, payload []byte) (int64, bool, error) {
	// An empty payload is stored as SQL NULL rather than invalid jsonb.
	var body *string
	if len(payload) > 0 {
		p := string(payload)
		body = &p
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO fd_raw_ingest (source, endpoint, external_key, last_modified, payload)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (source, endpoint, external_key) DO NOTHING
		 RETURNING id`,
		source, endpoint, key, lastModified.UTC(), body,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insertRaw: %w", err)
	}
	return id, true, nil
}

func (s *PostgresStore) Get(ctx context.Context, source, endpoint, key string) (*Record, error) {
	var (
		r       Record
		payload []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, endpoint, external_key, last_modified, fetched_at, payload::text
		 FROM fd_raw_ingest
		 WHERE source = $1 AND endpoint = $2 AND external_key = $3`,
		source, endpoint, key,
	).Scan(&r.ID, &r.Source, &r.Endpoint, &r.ExternalKey, &r.LastModified, &r.FetchedAt, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getRaw: %w", err)
	}
	r.Payload = payload
	return &r, nil
}

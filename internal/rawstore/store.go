// Package rawstore persists raw upstream payloads keyed by
// (source, endpoint, external key). Records are written once and never
// updated; uniqueness is enforced by the storage layer itself.
package rawstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record exists for the tuple.
var ErrNotFound = errors.New("raw ingest record not found")

// Record is one row of fd_raw_ingest.
type Record struct {
	ID           int64           `json:"id"`
	Source       string          `json:"source"`
	Endpoint     string          `json:"endpoint"`
	ExternalKey  string          `json:"externalKey"`
	LastModified time.Time       `json:"lastModified"`
	FetchedAt    time.Time       `json:"fetchedAt"`
	Payload      json.RawMessage `json:"payload"`
}

// Store is the raw ingest persistence contract.
type Store interface {
	// Exists reports whether a record for the tuple was fetched at or after since.
	Exists(ctx context.Context, source, endpoint, key string, since time.Time) (bool, error)
	// InsertIfAbsent atomically creates the record unless one already exists.
	// inserted is false, with a zero id and no error, when the tuple is taken.
	InsertIfAbsent(ctx context.Context, source, endpoint, key string, lastModified time.Time, payload []byte) (id int64, inserted bool, err error)
	// Get returns the stored record or ErrNotFound.
	Get(ctx context.Context, source, endpoint, key string) (*Record, error)
}

package rawstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchlens/ingest-service/internal/clock"
)

func TestMemoryStore(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 34, 56, 0, time.UTC)
	storeContract(t, func(t *testing.T) Store {
		return NewMemoryStore(clock.Fixed(now))
	}, func() time.Time { return now })
}

func TestMemoryStore_FetchedAtComesFromStoreClock(t *testing.T) {
	ctx := context.Background()
	c := clock.NewManual(time.Date(2024, 9, 21, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(c)

	_, _, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), []byte(`{}`))
	require.NoError(t, err)

	rec, err := s.Get(ctx, testSource, testEndpoint, testKey)
	require.NoError(t, err)
	assert.Equal(t, c.Now(), rec.FetchedAt)

	// The cutoff is inclusive.
	ok, err := s.Exists(ctx, testSource, testEndpoint, testKey, c.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	_, _, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, time.Now(), []byte(`{"a":1}`))
	require.NoError(t, err)

	rec, err := s.Get(ctx, testSource, testEndpoint, testKey)
	require.NoError(t, err)
	rec.Payload[0] = 'X'

	again, err := s.Get(ctx, testSource, testEndpoint, testKey)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(again.Payload))
}

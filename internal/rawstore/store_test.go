package rawstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSource   = "football-data.org"
	testEndpoint = "/v4/competitions/{code}"
	testKey      = "PL"
)

// storeContract runs the behaviour every Store implementation must honour.
// now is the store's notion of the current time (fetched_at on insert).
func storeContract(t *testing.T, newStore func(t *testing.T) Store, now func() time.Time) {
	ctx := context.Background()

	t.Run("insert returns id and persists row", func(t *testing.T) {
		s := newStore(t)
		lastModified := time.Date(2024, 10, 1, 12, 34, 56, 0, time.UTC)

		id, inserted, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, lastModified, []byte(`{"ok":true}`))
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NotZero(t, id)

		rec, err := s.Get(ctx, testSource, testEndpoint, testKey)
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, testKey, rec.ExternalKey)
		assert.True(t, rec.LastModified.Equal(lastModified))
		assert.JSONEq(t, `{"ok":true}`, string(rec.Payload))
	})

	t.Run("duplicate key is a no-op", func(t *testing.T) {
		s := newStore(t)

		id1, inserted1, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, now(), []byte(`{"n":1}`))
		require.NoError(t, err)
		require.True(t, inserted1)

		id2, inserted2, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, now().Add(time.Minute), []byte(`{"n":2}`))
		require.NoError(t, err)
		assert.False(t, inserted2)
		assert.Zero(t, id2)

		rec, err := s.Get(ctx, testSource, testEndpoint, testKey)
		require.NoError(t, err)
		assert.Equal(t, id1, rec.ID)
		assert.JSONEq(t, `{"n":1}`, string(rec.Payload))
	})

	t.Run("same key under another endpoint is independent", func(t *testing.T) {
		s := newStore(t)

		_, inserted, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, now(), []byte(`{}`))
		require.NoError(t, err)
		require.True(t, inserted)

		_, inserted, err = s.InsertIfAbsent(ctx, testSource, "/v4/competitions/{code}/matches", testKey, now(), []byte(`{}`))
		require.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("exists respects fetched_at cutoff", func(t *testing.T) {
		s := newStore(t)

		_, _, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, now(), []byte(`{"x":1}`))
		require.NoError(t, err)

		ok, err := s.Exists(ctx, testSource, testEndpoint, testKey, now().AddDate(0, -1, 0))
		require.NoError(t, err)
		assert.True(t, ok, "month-old cutoff")

		ok, err = s.Exists(ctx, testSource, testEndpoint, testKey, now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, ok, "minute-old cutoff")

		ok, err = s.Exists(ctx, testSource, testEndpoint, testKey, now().Add(24*time.Hour))
		require.NoError(t, err)
		assert.False(t, ok, "future cutoff")

		ok, err = s.Exists(ctx, testSource, testEndpoint, "CL", now().AddDate(0, -1, 0))
		require.NoError(t, err)
		assert.False(t, ok, "other key")
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Get(ctx, testSource, testEndpoint, "ZZ")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent inserts have exactly one winner", func(t *testing.T) {
		s := newStore(t)
		const writers = 16

		type result struct {
			id       int64
			inserted bool
			payload  string
		}
		results := make([]result, writers)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				payload := fmt.Sprintf(`{"writer":%d}`, i)
				id, inserted, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, now(), []byte(payload))
				assert.NoError(t, err)
				results[i] = result{id: id, inserted: inserted, payload: payload}
			}(i)
		}
		close(start)
		wg.Wait()

		var winners []result
		for _, r := range results {
			if r.inserted {
				winners = append(winners, r)
			} else {
				assert.Zero(t, r.id)
			}
		}
		require.Len(t, winners, 1)

		rec, err := s.Get(ctx, testSource, testEndpoint, testKey)
		require.NoError(t, err)
		assert.Equal(t, winners[0].id, rec.ID)
		assert.JSONEq(t, winners[0].payload, string(rec.Payload))
	})
}

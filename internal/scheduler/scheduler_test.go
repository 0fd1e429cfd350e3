package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	mu      sync.Mutex
	seen    []string
	running atomic.Int32
	peak    atomic.Int32
	results map[string]error
	delay   time.Duration
}

func (f *fakeIngester) IngestCompetition(ctx context.Context, code string) (int64, bool, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.seen = append(f.seen, code)
	f.mu.Unlock()

	if err, ok := f.results[code]; ok {
		return 0, false, err
	}
	return 1, true, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce_CountsOutcomes(t *testing.T) {
	ing := &fakeIngester{results: map[string]error{
		"CL": nil,
		"ZZ": errors.New("upstream down"),
	}}
	s := New(ing, Config{Spec: "@every 1h", Competitions: []string{"PL", "CL", "ZZ", "BL1"}, Concurrency: 2}, quietLogger())

	sum := s.RunOnce(context.Background())

	assert.Equal(t, Summary{Stored: 2, Skipped: 1, Failed: 1}, sum)
	assert.ElementsMatch(t, []string{"PL", "CL", "ZZ", "BL1"}, ing.seen)
}

func TestRunOnce_RespectsConcurrencyLimit(t *testing.T) {
	ing := &fakeIngester{delay: 20 * time.Millisecond}
	codes := []string{"PL", "CL", "BL1", "SA", "PD", "FL1"}
	s := New(ing, Config{Spec: "@every 1h", Competitions: codes, Concurrency: 2}, quietLogger())

	sum := s.RunOnce(context.Background())

	assert.Equal(t, len(codes), sum.Stored)
	assert.LessOrEqual(t, ing.peak.Load(), int32(2))
}

func TestStart_RunsImmediately(t *testing.T) {
	ing := &fakeIngester{}
	s := New(ing, Config{Spec: "@every 1h", Competitions: []string{"PL"}}, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Stop(context.Background()) })

	assert.Eventually(t, func() bool {
		ing.mu.Lock()
		defer ing.mu.Unlock()
		return len(ing.seen) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := New(&fakeIngester{}, Config{Spec: "every now and then", Competitions: []string{"PL"}}, quietLogger())
	assert.ErrorContains(t, s.Start(context.Background()), "cron.AddFunc")
}

func TestStart_NoCompetitionsIsIdle(t *testing.T) {
	ing := &fakeIngester{}
	s := New(ing, Config{Spec: "not parsed"}, quietLogger())
	assert.NoError(t, s.Start(context.Background()))
	assert.Empty(t, ing.seen)
}

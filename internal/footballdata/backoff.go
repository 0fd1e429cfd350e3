package footballdata

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// defaultRetryAfter applies when a 429 carries no usable Retry-After header.
const defaultRetryAfter = 2 * time.Second

// Backoff computes exponential delays between attempts.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay returns the wait before retry n (1-based): Initial doubled n-1 times,
// capped at Max.
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := b.Initial
	for i := 1; i < n; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// next honours the upstream's Retry-After when it asks for a longer pause.
func (b Backoff) next(n int, fe *FetchError) time.Duration {
	d := b.Delay(n)
	if fe.Kind == KindRateLimited && fe.RetryAfter > d {
		return fe.RetryAfter
	}
	return d
}

// parseRetryAfter accepts delay-seconds or an HTTP-date. The result is at
// least one second.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return max(time.Duration(secs)*time.Second, time.Second)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now).Truncate(time.Second), time.Second)
	}
	return defaultRetryAfter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

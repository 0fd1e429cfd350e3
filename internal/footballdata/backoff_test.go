package footballdata

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 8 * time.Second}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 8 * time.Second},
		{40, 8 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.retry), "Delay(%d)", tt.retry)
	}
}

func TestBackoff_NextHonoursLongerRetryAfter(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 8 * time.Second}

	rl := &FetchError{Kind: KindRateLimited, RetryAfter: 30 * time.Second}
	assert.Equal(t, 30*time.Second, b.next(1, rl))

	short := &FetchError{Kind: KindRateLimited, RetryAfter: time.Second}
	assert.Equal(t, 4*time.Second, b.next(3, short))

	srv := &FetchError{Kind: KindServerError, Status: 503, RetryAfter: time.Minute}
	assert.Equal(t, 2*time.Second, b.next(2, srv))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"seconds", "5", 5 * time.Second},
		{"padded seconds", " 12 ", 12 * time.Second},
		{"zero clamps to one second", "0", time.Second},
		{"negative clamps to one second", "-3", time.Second},
		{"missing", "", defaultRetryAfter},
		{"garbage", "soon", defaultRetryAfter},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"http date in the past", now.Add(-time.Hour).Format(http.TimeFormat), time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.header, now))
		})
	}
}

func TestKind_Retryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindRateLimited:    true,
		KindServerError:    true,
		KindTransport:      true,
		KindClientError:    false,
		KindBadContentType: false,
		KindParse:          false,
		KindSerialization:  false,
		KindCancelled:      false,
	}
	for k, want := range retryable {
		assert.Equal(t, want, k.Retryable(), k.String())
	}
}

func TestKindOf(t *testing.T) {
	k, ok := KindOf(NewSerializationError(assert.AnError))
	assert.True(t, ok)
	assert.Equal(t, KindSerialization, k)

	_, ok = KindOf(assert.AnError)
	assert.False(t, ok)
}

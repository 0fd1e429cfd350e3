package footballdata

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies why a fetch did not produce a resource. The set is closed;
// "resource absent" is not a failure and is reported as a nil result instead.
type Kind int

const (
	KindRateLimited Kind = iota + 1
	KindServerError
	KindTransport
	KindClientError
	KindBadContentType
	KindParse
	KindSerialization
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindTransport:
		return "transport"
	case KindClientError:
		return "client_error"
	case KindBadContentType:
		return "bad_content_type"
	case KindParse:
		return "parse"
	case KindSerialization:
		return "serialization"
	case KindCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether the failure is believed to be transient.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServerError, KindTransport:
		return true
	}
	return false
}

// maxPreview bounds the response body excerpt kept for diagnostics.
const maxPreview = 500

// FetchError is the terminal failure of a fetch or ingest.
type FetchError struct {
	Kind Kind
	// Status is the upstream HTTP status, zero when no response was received.
	Status int
	// RetryAfter is the delay advertised by a 429 response.
	RetryAfter  time.Duration
	ContentType string
	// BodyPreview holds at most 500 bytes of the upstream response body.
	BodyPreview string
	Message     string
	// Attempts is the number of HTTP attempts made before giving up.
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return fmt.Sprintf("football-data.org rate limit reached; retry after %s", e.RetryAfter)
	case KindServerError:
		return fmt.Sprintf("football-data.org upstream error: HTTP %d", e.Status)
	case KindTransport:
		return fmt.Sprintf("football-data.org unreachable: %v", e.Err)
	case KindClientError:
		return withPreview(fmt.Sprintf("football-data.org client error: HTTP %d", e.Status), e.BodyPreview)
	case KindBadContentType:
		return withPreview(fmt.Sprintf("football-data.org returned non-JSON response (%s)", e.ContentType), e.BodyPreview)
	case KindParse:
		return "failed to parse football-data.org JSON: " + e.Message
	case KindSerialization:
		return "failed to serialize competition payload: " + e.Message
	case KindCancelled:
		return fmt.Sprintf("football-data.org request cancelled: %v", e.Err)
	}
	return fmt.Sprintf("football-data.org fetch failed (%s)", e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf extracts the classification of err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// NewSerializationError reports a payload that could not be encoded locally.
func NewSerializationError(err error) *FetchError {
	return &FetchError{Kind: KindSerialization, Message: err.Error(), Err: err}
}

func withPreview(leading, preview string) string {
	if preview == "" {
		return leading
	}
	return leading + ": " + preview
}

func truncatePreview(body []byte) string {
	if len(body) > maxPreview {
		body = body[:maxPreview]
	}
	return string(body)
}

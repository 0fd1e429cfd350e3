// Package footballdata is the HTTP client for the football-data.org v4 API.
//
// Every response is classified into a closed set of outcomes (see Kind).
// Transient failures (429, 5xx, transport errors) are retried with a bounded
// exponential backoff; everything else fails fast. After the last attempt the
// caller receives the last observed *FetchError, never a generic wrapper.
package footballdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"matchlens/ingest-service/internal/metrics"
	"matchlens/ingest-service/internal/model"
)

const (
	// Source identifies this integration in the raw store.
	Source = "football-data.org"
	// CompetitionEndpoint is the path template of the competition resource.
	CompetitionEndpoint = "/v4/competitions/{code}"

	authHeader   = "X-Auth-Token"
	maxBodyBytes = 8 << 20
)

// Config holds the connection and retry settings of a Client.
type Config struct {
	BaseURL   string
	APIKey    string
	UserAgent string

	// ConnectTimeout bounds dialling and the TLS handshake.
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for response headers once the request is sent.
	ReadTimeout time.Duration
	// RequestTimeout bounds a whole attempt including the body read. Zero disables it.
	RequestTimeout time.Duration

	// RequestsPerMinute paces attempts process-wide. Zero disables pacing.
	RequestsPerMinute int

	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client fetches football-data.org resources. Safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	userAgent   string
	http        *http.Client
	limiter     *rate.Limiter
	backoff     Backoff
	maxAttempts int
	logger      *slog.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewClient builds a Client with its own transport.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid football-data base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.ConnectTimeout <= 0 || cfg.ReadTimeout <= 0 {
		return nil, fmt.Errorf("connect and read timeouts are required")
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		userAgent:   cfg.UserAgent,
		http:        &http.Client{Transport: transport, Timeout: cfg.RequestTimeout},
		limiter:     rate.NewLimiter(limit, 1),
		backoff:     Backoff{Initial: cfg.InitialBackoff, Max: cfg.MaxBackoff},
		maxAttempts: cfg.MaxAttempts,
		logger:      logger.With(slog.String("component", "footballdata")),
		sleep:       sleepContext,
		now:         time.Now,
	}, nil
}

// FetchCompetition retrieves GET /v4/competitions/{code}.
// It returns (nil, nil) when the competition does not exist upstream.
func (c *Client) FetchCompetition(ctx context.Context, code string) (*model.Competition, error) {
	endpoint := c.baseURL + "/v4/competitions/" + url.PathEscape(code)
	log := c.logger.With(slog.String("code", code))

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.cancelled(log, err, attempt-1)
		}

		log.Debug("calling football-data.org", "path", "/v4/competitions/"+code, "attempt", attempt)
		comp, fe := c.fetchOnce(ctx, endpoint)
		if fe == nil {
			if comp == nil {
				log.Debug("competition not found at football-data.org")
			}
			return comp, nil
		}
		fe.Attempts = attempt

		if !fe.Kind.Retryable() || attempt >= c.maxAttempts {
			c.logTerminal(log, fe)
			return nil, fe
		}

		delay := c.backoff.next(attempt, fe)
		metrics.UpstreamRetries.WithLabelValues(fe.Kind.String()).Inc()
		log.Warn("retrying football-data.org request",
			"kind", fe.Kind.String(), "status", fe.Status, "attempt", attempt, "delay", delay)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, c.cancelled(log, err, attempt)
		}
	}
}

// fetchOnce performs a single attempt. A nil error with a nil competition
// means the resource is absent.
func (c *Client) fetchOnce(ctx context.Context, endpoint string) (*model.Competition, *FetchError) {
	start := time.Now()
	comp, fe := c.doRequest(ctx, endpoint)
	metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	metrics.UpstreamAttempts.WithLabelValues(outcome(comp, fe)).Inc()
	return comp, fe
}

func (c *Client) doRequest(ctx context.Context, endpoint string) (*model.Competition, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, &FetchError{Kind: KindClientError, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(authHeader, c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.transportError(ctx, fmt.Errorf("read body: %w", err))
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case status == http.StatusTooManyRequests:
		return nil, &FetchError{
			Kind:       KindRateLimited,
			Status:     status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	case status >= 500:
		return nil, &FetchError{Kind: KindServerError, Status: status, BodyPreview: truncatePreview(body)}
	case status >= 400:
		return nil, &FetchError{Kind: KindClientError, Status: status, BodyPreview: truncatePreview(body)}
	case status < 200 || status >= 300:
		// 1xx/3xx that were not followed: the upstream is misbehaving.
		return nil, &FetchError{Kind: KindServerError, Status: status, BodyPreview: truncatePreview(body)}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isJSON(contentType) {
		return nil, &FetchError{
			Kind:        KindBadContentType,
			Status:      status,
			ContentType: contentType,
			BodyPreview: truncatePreview(body),
		}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var comp model.Competition
	if err := json.Unmarshal(trimmed, &comp); err != nil {
		return nil, &FetchError{Kind: KindParse, Status: status, Message: err.Error(), Err: err}
	}
	return &comp, nil
}

func (c *Client) transportError(ctx context.Context, err error) *FetchError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &FetchError{Kind: KindCancelled, Err: ctxErr}
	}
	return &FetchError{Kind: KindTransport, Err: err}
}

// cancelled covers a done context as well as a limiter wait that would
// outlive the context deadline.
func (c *Client) cancelled(log *slog.Logger, err error, attempts int) *FetchError {
	fe := &FetchError{Kind: KindCancelled, Attempts: attempts, Err: err}
	c.logTerminal(log, fe)
	return fe
}

func (c *Client) logTerminal(log *slog.Logger, fe *FetchError) {
	attrs := []any{"kind", fe.Kind.String(), "status", fe.Status, "attempts", fe.Attempts}
	switch fe.Kind {
	case KindClientError:
		log.Warn("football-data.org client error", append(attrs, "body", fe.BodyPreview)...)
	case KindCancelled:
		log.Info("football-data.org request cancelled", append(attrs, "err", fe.Err)...)
	case KindRateLimited:
		log.Warn("football-data.org rate limit persists", append(attrs, "retry_after", fe.RetryAfter)...)
	default:
		log.Error("football-data.org request failed", append(attrs, "err", fe.Error())...)
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func outcome(comp *model.Competition, fe *FetchError) string {
	switch {
	case fe != nil:
		return fe.Kind.String()
	case comp == nil:
		return "absent"
	}
	return "ok"
}

// Package ingest coordinates fetching football-data.org resources and
// persisting them as raw records, at most once per key per freshness window.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"matchlens/ingest-service/internal/clock"
	"matchlens/ingest-service/internal/events"
	"matchlens/ingest-service/internal/footballdata"
	"matchlens/ingest-service/internal/metrics"
	"matchlens/ingest-service/internal/model"
	"matchlens/ingest-service/internal/rawstore"
)

// Fetcher retrieves a competition; (nil, nil) means it does not exist.
type Fetcher interface {
	FetchCompetition(ctx context.Context, code string) (*model.Competition, error)
}

// Publisher is notified about newly stored records.
type Publisher interface {
	PublishRawIngested(ctx context.Context, ev events.RawIngested) error
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	// FreshnessWindow is how long a stored record suppresses new fetches.
	// Zero means one calendar month.
	FreshnessWindow time.Duration
	Publisher       Publisher
	Logger          *slog.Logger
}

// Service is the ingest coordinator. Safe for concurrent use.
type Service struct {
	fetcher   Fetcher
	store     rawstore.Store
	clock     clock.Clock
	window    time.Duration
	publisher Publisher
	logger    *slog.Logger

	marshal func(v any) ([]byte, error)
}

func NewService(fetcher Fetcher, store rawstore.Store, c clock.Clock, opts Options) *Service {
	if c == nil {
		c = clock.System{}
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		fetcher:   fetcher,
		store:     store,
		clock:     c,
		window:    opts.FreshnessWindow,
		publisher: opts.Publisher,
		logger:    opts.Logger.With(slog.String("component", "ingest")),
		marshal:   json.Marshal,
	}
}

// IngestCompetition fetches and stores competition code unless a record
// younger than the freshness window already exists.
//
// stored is false when the record was fresh, the competition is absent
// upstream, or a concurrent caller won the insert. Upstream failures are
// returned as the client's *footballdata.FetchError unchanged.
func (s *Service) IngestCompetition(ctx context.Context, code string) (id int64, stored bool, err error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
		metrics.IngestOutcomes.WithLabelValues(outcome).Inc()
	}()

	log := s.logger.With(slog.String("code", code))
	now := s.clock.Now().UTC()

	fresh, err := s.store.Exists(ctx, footballdata.Source, footballdata.CompetitionEndpoint, code, s.cutoff(now))
	if err != nil {
		return 0, false, fmt.Errorf("check existing record: %w", err)
	}
	if fresh {
		outcome = "fresh"
		log.Debug("record within freshness window, skipping fetch")
		return 0, false, nil
	}

	comp, err := s.fetcher.FetchCompetition(ctx, code)
	if err != nil {
		if k, ok := footballdata.KindOf(err); ok {
			outcome = k.String()
		}
		return 0, false, err
	}
	if comp == nil {
		outcome = "absent"
		log.Info("competition not found upstream")
		return 0, false, nil
	}

	payload, err := s.marshal(comp)
	if err != nil {
		outcome = footballdata.KindSerialization.String()
		log.Error("serialize competition", "err", err)
		return 0, false, footballdata.NewSerializationError(err)
	}

	id, inserted, err := s.store.InsertIfAbsent(ctx, footballdata.Source, footballdata.CompetitionEndpoint, code, now, payload)
	if err != nil {
		return 0, false, fmt.Errorf("insert raw record: %w", err)
	}
	if !inserted {
		outcome = "conflict"
		log.Info("record already stored by a concurrent ingest")
		return 0, false, nil
	}

	outcome = "stored"
	log.Info("competition stored", "id", id, "bytes", len(payload))

	ev := events.RawIngested{
		ID:           id,
		Source:       footballdata.Source,
		Endpoint:     footballdata.CompetitionEndpoint,
		ExternalKey:  code,
		LastModified: now,
	}
	if err := s.publisher.PublishRawIngested(ctx, ev); err != nil {
		metrics.EventPublishErrors.Inc()
		log.Warn("publish raw ingested event failed", "err", err)
	}
	return id, true, nil
}

func (s *Service) cutoff(now time.Time) time.Time {
	if s.window <= 0 {
		return now.AddDate(0, -1, 0)
	}
	return now.Add(-s.window)
}

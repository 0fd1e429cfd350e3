// Package httpapi exposes the ingest coordinator over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matchlens/ingest-service/internal/footballdata"
	"matchlens/ingest-service/internal/logging"
	"matchlens/ingest-service/internal/metrics"
	"matchlens/ingest-service/internal/rawstore"
)

const requestIDHeader = "X-Request-ID"

var competitionCode = regexp.MustCompile(`^[A-Z0-9]{2,5}$`)

// Ingester is satisfied by *ingest.Service.
type Ingester interface {
	IngestCompetition(ctx context.Context, code string) (int64, bool, error)
}

// RecordReader is satisfied by every rawstore.Store.
type RecordReader interface {
	Get(ctx context.Context, source, endpoint, key string) (*rawstore.Record, error)
}

type competitionRequest struct {
	Code string `validate:"required,competition_code"`
}

// Handler serves the ingest endpoints.
type Handler struct {
	ingester Ingester
	records  RecordReader
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(ingester Ingester, records RecordReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("competition_code", func(fl validator.FieldLevel) bool {
		return competitionCode.MatchString(fl.Field().String())
	})
	return &Handler{
		ingester: ingester,
		records:  records,
		validate: v,
		logger:   logger.With(slog.String("component", "httpapi")),
	}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(countRequests)

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/ingest/footballdataorg", func(r chi.Router) {
		r.Get("/fixtures", h.ingestCompetition)
		r.Get("/records/{code}", h.getRecord)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ingest-service"})
}

// ingestCompetition handles GET /ingest/footballdataorg/fixtures?competition=PL.
func (h *Handler) ingestCompetition(w http.ResponseWriter, r *http.Request) {
	req := competitionRequest{Code: r.URL.Query().Get("competition")}
	if err := h.validate.Struct(req); err != nil {
		writeProblem(w, r, newProblem(http.StatusBadRequest,
			"competition must match ^[A-Z0-9]{2,5}$"), nil)
		return
	}

	log := logging.FromContext(r.Context(), h.logger).With(slog.String("code", req.Code))
	id, stored, err := h.ingester.IngestCompetition(r.Context(), req.Code)
	if err != nil {
		p, header := problemFor(err)
		if p.Status >= 500 {
			log.Error("ingest failed", "status", p.Status, "err", err)
		} else {
			log.Warn("ingest failed", "status", p.Status, "err", err)
		}
		writeProblem(w, r, p, header)
		return
	}
	if !stored {
		writeProblem(w, r, newProblem(http.StatusNotFound, "not found or already stored"), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

// getRecord handles GET /ingest/footballdataorg/records/{code}.
func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	req := competitionRequest{Code: chi.URLParam(r, "code")}
	if err := h.validate.Struct(req); err != nil {
		writeProblem(w, r, newProblem(http.StatusBadRequest,
			"competition must match ^[A-Z0-9]{2,5}$"), nil)
		return
	}

	rec, err := h.records.Get(r.Context(), footballdata.Source, footballdata.CompetitionEndpoint, req.Code)
	if errors.Is(err, rawstore.ErrNotFound) {
		writeProblem(w, r, newProblem(http.StatusNotFound, "no stored record for "+req.Code), nil)
		return
	}
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Error("get record", "code", req.Code, "err", err)
		writeProblem(w, r, newProblem(http.StatusInternalServerError, "internal error"), nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// requestID propagates X-Request-ID, generating one when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"matchlens/ingest-service/internal/footballdata"
)

const (
	problemContentType = "application/problem+json"
	problemType        = "about:blank"
)

// Problem is an RFC 9457 problem document.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Kind is the upstream failure classification, when there is one.
	Kind string `json:"kind,omitempty"`
}

// problemFor maps an ingest error onto the caller-facing status. Every
// footballdata.Kind is handled explicitly.
func problemFor(err error) (Problem, http.Header) {
	var fe *footballdata.FetchError
	if !errors.As(err, &fe) {
		return newProblem(http.StatusInternalServerError, "internal error"), nil
	}

	p := Problem{Kind: fe.Kind.String(), Detail: fe.Error()}
	var header http.Header
	switch fe.Kind {
	case footballdata.KindRateLimited:
		p.Status = http.StatusTooManyRequests
		header = http.Header{}
		header.Set("Retry-After", strconv.Itoa(retryAfterSeconds(fe)))
	case footballdata.KindServerError:
		p.Status = http.StatusBadGateway
	case footballdata.KindTransport, footballdata.KindCancelled:
		p.Status = http.StatusGatewayTimeout
	case footballdata.KindClientError:
		p.Status = http.StatusInternalServerError
		if fe.Status >= 400 && fe.Status < 500 {
			p.Status = fe.Status
		}
		p.Detail = clientErrorDetail(fe)
	case footballdata.KindBadContentType, footballdata.KindParse, footballdata.KindSerialization:
		p.Status = http.StatusBadGateway
	default:
		p.Status = http.StatusInternalServerError
	}
	p.Type = problemType
	p.Title = problemTitle(p.Status)
	return p, header
}

func clientErrorDetail(fe *footballdata.FetchError) string {
	switch fe.Status {
	case http.StatusBadRequest:
		return "Bad request to football-data.org (likely token/parameters)"
	case http.StatusUnauthorized:
		return "Unauthorized at football-data.org (check X-Auth-Token)"
	case http.StatusForbidden:
		return "Forbidden at football-data.org (token lacks permissions)"
	}
	return fe.Error()
}

func retryAfterSeconds(fe *footballdata.FetchError) int {
	secs := int(math.Ceil(fe.RetryAfter.Seconds()))
	return max(secs, 1)
}

func newProblem(status int, detail string) Problem {
	return Problem{
		Type:   problemType,
		Title:  problemTitle(status),
		Status: status,
		Detail: detail,
	}
}

func problemTitle(status int) string {
	switch status {
	case http.StatusNotFound:
		return "Resource Not Found"
	case http.StatusBadRequest:
		return "Bad Request"
	}
	return "Request Failed"
}

func writeProblem(w http.ResponseWriter, r *http.Request, p Problem, header http.Header) {
	for k, vs := range header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	p.Instance = r.URL.Path
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

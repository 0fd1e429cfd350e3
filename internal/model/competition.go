// Package model defines the football-data.org documents handled by the ingest service.
package model

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Competition mirrors GET /v4/competitions/{code}. Unknown fields are ignored
// on decode; the upstream schema grows without notice.
type Competition struct {
	Area          *Area           `json:"area,omitempty"`
	ID            int64           `json:"id"`
	Name          string          `json:"name,omitempty"`
	Code          string          `json:"code,omitempty"`
	Type          CompetitionType `json:"type,omitempty"`
	Emblem        string          `json:"emblem,omitempty"`
	CurrentSeason *Season         `json:"currentSeason,omitempty"`
	Seasons       []Season        `json:"seasons,omitempty"`
	LastUpdated   *time.Time      `json:"lastUpdated,omitempty"`
}

// Area is the country or region a competition belongs to.
type Area struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
	Flag string `json:"flag,omitempty"`
}

// Season is one edition of a competition.
type Season struct {
	ID              int64   `json:"id"`
	StartDate       *Date   `json:"startDate,omitempty"`
	EndDate         *Date   `json:"endDate,omitempty"`
	CurrentMatchday *int    `json:"currentMatchday,omitempty"`
	Winner          *Team   `json:"winner,omitempty"`
	Stages          []Stage `json:"stages,omitempty"`
}

// Team is the winner of a season.
type Team struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name,omitempty"`
	ShortName   string     `json:"shortName,omitempty"`
	TLA         string     `json:"tla,omitempty"`
	Crest       string     `json:"crest,omitempty"`
	Address     string     `json:"address,omitempty"`
	Website     string     `json:"website,omitempty"`
	Founded     *int       `json:"founded,omitempty"`
	ClubColors  string     `json:"clubColors,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// ─── Enums ────────────────────────────────────────────────────────────────────

// CompetitionType values as published by the upstream API.
type CompetitionType string

const (
	CompetitionLeague   CompetitionType = "LEAGUE"
	CompetitionCup      CompetitionType = "CUP"
	CompetitionPlayoffs CompetitionType = "PLAYOFFS"
	CompetitionUnknown  CompetitionType = "UNKNOWN"
)

// ParseCompetitionType maps any unrecognised value to CompetitionUnknown.
func ParseCompetitionType(s string) CompetitionType {
	switch t := CompetitionType(s); t {
	case CompetitionLeague, CompetitionCup, CompetitionPlayoffs:
		return t
	}
	return CompetitionUnknown
}

// UnmarshalJSON leaves the field untouched on a JSON null.
func (t *CompetitionType) UnmarshalJSON(b []byte) error {
	s, ok, err := enumString(b)
	if err != nil || !ok {
		return err
	}
	*t = ParseCompetitionType(s)
	return nil
}

// Stage of a season.
type Stage string

const (
	StageRegularSeason Stage = "REGULAR_SEASON"
	StageUnknown       Stage = "UNKNOWN"
)

// ParseStage maps any unrecognised value, including the string "null" found in
// historical seasons, to StageUnknown.
func ParseStage(s string) Stage {
	if st := Stage(s); st == StageRegularSeason {
		return st
	}
	return StageUnknown
}

// UnmarshalJSON leaves the field untouched on a JSON null.
func (st *Stage) UnmarshalJSON(b []byte) error {
	s, ok, err := enumString(b)
	if err != nil || !ok {
		return err
	}
	*st = ParseStage(s)
	return nil
}

// enumString reports ok=false for a JSON null token. A quoted "null" is a
// string like any other.
func enumString(b []byte) (string, bool, error) {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false, fmt.Errorf("enum value must be a string: %w", err)
	}
	return s, true, nil
}

// ─── Date ─────────────────────────────────────────────────────────────────────

const dateLayout = "2006-01-02"

// Date is a calendar day without time of day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(dateLayout) }

// MarshalJSON encodes the day as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON parses a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

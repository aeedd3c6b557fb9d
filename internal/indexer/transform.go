package indexer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/timeutil"
	"github.com/vibhu2208/candidate-indexer/internal/warehouse"
)

// Candidates query column positions. Field names come from the header
// row so the select list stays the single source of truth.
const (
	colCandidateID = iota
	colCountry
	colLastActivity
	colTimezone
	colMinCompPerHr
	colJobTitles
	colBadges
	colAvailability
	colIsEmailBounced

	candidateColumns
)

// lastActivityLayouts are the timestamp shapes the warehouse emits for
// from_iso8601_timestamp columns.
var lastActivityLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.000 MST",
	"2006-01-02 15:04:05 MST",
}

// CandidateRow converts one positional candidates row into a metadata
// document. Rows with malformed JSON columns are rejected; scalar
// columns degrade to zero values the way the index expects them.
func CandidateRow(header []string, row warehouse.Row) (domain.Doc, error) {
	if len(row) < candidateColumns || len(header) < candidateColumns {
		return nil, fmt.Errorf("candidate row has %d columns, want %d", len(row), candidateColumns)
	}

	jobTitles, err := parseStringArray(row[colJobTitles])
	if err != nil {
		return nil, fmt.Errorf("parsing jobTitles: %w", err)
	}
	badges, err := parseBadges(row[colBadges])
	if err != nil {
		return nil, fmt.Errorf("parsing badges: %w", err)
	}

	doc := domain.Doc{
		header[colCandidateID]:    row[colCandidateID],
		header[colCountry]:        row[colCountry],
		header[colLastActivity]:   parseLastActivity(row[colLastActivity]),
		header[colMinCompPerHr]:   parseMinComp(row[colMinCompPerHr]),
		header[colJobTitles]:      jobTitles,
		header[colBadges]:         badges,
		header[colAvailability]:   row[colAvailability],
		header[colIsEmailBounced]: strings.EqualFold(row[colIsEmailBounced], "true"),
	}

	// The timezone field only appears when the zone is known; searches
	// treat absence as "unknown", not as UTC.
	if offset, ok := timeutil.OffsetToUTCNoDST(row[colTimezone]); ok {
		doc[header[colTimezone]] = offset / 60
	}
	return doc, nil
}

// ProfileRow converts one profiles row: the candidate id and the joined
// free-text narrative.
func ProfileRow(header []string, row warehouse.Row) (domain.Doc, error) {
	if len(row) < 2 || len(header) < 2 {
		return nil, fmt.Errorf("profile row has %d columns, want 2", len(row))
	}
	return domain.Doc{
		header[0]: row[0],
		header[1]: row[1],
	}, nil
}

func parseLastActivity(value string) any {
	for _, layout := range lastActivityLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return nil
}

func parseMinComp(value string) int {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func parseStringArray(value string) ([]string, error) {
	if value == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Badge is one earned proficiency, as stored on the candidate document.
type Badge struct {
	ID    string  `json:"id"`
	Stars float64 `json:"stars"`
}

func parseBadges(value string) ([]Badge, error) {
	if value == "" {
		return []Badge{}, nil
	}
	var out []Badge
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, err
	}
	return out, nil
}

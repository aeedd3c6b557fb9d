package warehouse

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Cursor records how far an extraction has progressed so that a run cut
// short by its time budget can resume exactly where it stopped. A zero
// Cursor means a fresh extraction.
type Cursor struct {
	// StartDate is the inclusive lower bound on modification time
	// carried by the query, ISO date form.
	StartDate string `json:"startDate,omitempty"`
	// Fetched counts data rows pulled from the warehouse so far.
	Fetched int `json:"fetched"`
	// Indexed counts documents written to the search indices so far.
	Indexed int `json:"indexed"`
	// HeaderRow is the column header captured from the first result
	// page. Nil until the first page has been read.
	HeaderRow []string `json:"headerRow,omitempty"`
	// QueryID is the handle of the in-flight warehouse query, reused
	// across resumed runs so the query is never re-executed.
	QueryID string `json:"queryId,omitempty"`
	// NextToken is the page token of the next unread result page.
	NextToken string `json:"nextToken,omitempty"`
}

// Started reports whether the cursor belongs to an extraction already
// in flight.
func (c *Cursor) Started() bool {
	return c.QueryID != ""
}

// LoadCursor reads a persisted cursor from path. A missing file yields
// a zero cursor and no error.
func LoadCursor(path string) (*Cursor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Cursor{}, nil
		}
		return nil, fmt.Errorf("reading cursor file: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing cursor file %s: %w", path, err)
	}
	return &c, nil
}

// SaveCursor writes the cursor to path atomically, via a temp file and
// rename, so a crash mid-write never leaves a torn cursor behind.
func SaveCursor(path string, c *Cursor) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cursor directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cursor-*")
	if err != nil {
		return fmt.Errorf("creating temp cursor file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cursor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing cursor file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cursor file: %w", err)
	}
	return nil
}

// ClearCursor removes the persisted cursor once an extraction has run
// to completion. A missing file is not an error.
func ClearCursor(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cursor file: %w", err)
	}
	return nil
}

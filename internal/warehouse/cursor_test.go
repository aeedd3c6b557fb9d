package warehouse

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCursorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cursor.json")

	want := &Cursor{
		StartDate: "2024-05-01",
		Fetched:   1200,
		Indexed:   1180,
		HeaderRow: []string{"id", "firstName", "country"},
		QueryID:   "q-8841",
		NextToken: "page-3",
	}
	if err := SaveCursor(path, want); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}

	got, err := LoadCursor(path)
	if err != nil {
		t.Fatalf("LoadCursor: %v", err)
	}
	if got.QueryID != want.QueryID || got.NextToken != want.NextToken {
		t.Errorf("got query %q token %q, want %q %q", got.QueryID, got.NextToken, want.QueryID, want.NextToken)
	}
	if got.Fetched != want.Fetched || got.Indexed != want.Indexed {
		t.Errorf("got counts %d/%d, want %d/%d", got.Fetched, got.Indexed, want.Fetched, want.Indexed)
	}
	if len(got.HeaderRow) != 3 || got.HeaderRow[1] != "firstName" {
		t.Errorf("header row not preserved: %v", got.HeaderRow)
	}
}

func TestLoadCursorMissingFile(t *testing.T) {
	got, err := LoadCursor(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadCursor: %v", err)
	}
	if got.Started() {
		t.Errorf("missing file should yield a fresh cursor, got %+v", got)
	}
}

func TestLoadCursorCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCursor(path); err == nil {
		t.Error("expected error for corrupt cursor file")
	}
}

func TestClearCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	if err := SaveCursor(path, &Cursor{QueryID: "q-1"}); err != nil {
		t.Fatal(err)
	}
	if err := ClearCursor(path); err != nil {
		t.Fatalf("ClearCursor: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cursor file still present after clear")
	}
	if err := ClearCursor(path); err != nil {
		t.Errorf("clearing an absent cursor should not fail: %v", err)
	}
}

package indexer

import (
	"reflect"
	"testing"

	"github.com/vibhu2208/candidate-indexer/internal/warehouse"
)

var candidateHeader = []string{
	"candidateId", "country", "lastActivity", "detectedTimezone",
	"minCompPerHr", "jobTitles", "badges", "availability", "isEmailBounced",
}

func TestCandidateRow(t *testing.T) {
	doc, err := CandidateRow(candidateHeader, warehouse.Row{
		"c1",
		"BR",
		"2024-03-01T12:00:00Z",
		"America/Sao_Paulo",
		"12.5",
		`["Java Developer","Backend Engineer"]`,
		`[{"id":"step1","stars":3},{"id":"step2","stars":4.5}]`,
		"available",
		"TRUE",
	})
	if err != nil {
		t.Fatalf("CandidateRow: %v", err)
	}

	if doc.CandidateID() != "c1" {
		t.Errorf("candidateId = %q", doc.CandidateID())
	}
	if doc["country"] != "BR" {
		t.Errorf("country = %v", doc["country"])
	}
	if doc["lastActivity"] != "2024-03-01T12:00:00Z" {
		t.Errorf("lastActivity = %v", doc["lastActivity"])
	}
	if doc["detectedTimezone"] != -3 {
		t.Errorf("detectedTimezone = %v, want -3", doc["detectedTimezone"])
	}
	if doc["minCompPerHr"] != 12 {
		t.Errorf("minCompPerHr = %v, want 12", doc["minCompPerHr"])
	}
	titles := doc["jobTitles"].([]string)
	if !reflect.DeepEqual(titles, []string{"Java Developer", "Backend Engineer"}) {
		t.Errorf("jobTitles = %v", titles)
	}
	badges := doc["badges"].([]Badge)
	if len(badges) != 2 || badges[0] != (Badge{ID: "step1", Stars: 3}) {
		t.Errorf("badges = %v", badges)
	}
	if doc["availability"] != "available" {
		t.Errorf("availability = %v", doc["availability"])
	}
	if doc["isEmailBounced"] != true {
		t.Errorf("isEmailBounced = %v", doc["isEmailBounced"])
	}
}

func TestCandidateRowOmitsUnknownTimezone(t *testing.T) {
	doc, err := CandidateRow(candidateHeader, warehouse.Row{
		"c1", "BR", "not-a-date", "", "", "[]", "[]", "available", "false",
	})
	if err != nil {
		t.Fatalf("CandidateRow: %v", err)
	}
	if _, ok := doc["detectedTimezone"]; ok {
		t.Error("detectedTimezone set for unknown zone")
	}
	if doc["lastActivity"] != nil {
		t.Errorf("lastActivity = %v, want nil", doc["lastActivity"])
	}
	if doc["minCompPerHr"] != 0 {
		t.Errorf("minCompPerHr = %v, want 0", doc["minCompPerHr"])
	}
	if doc["isEmailBounced"] != false {
		t.Errorf("isEmailBounced = %v", doc["isEmailBounced"])
	}
}

func TestCandidateRowRejectsMalformedColumns(t *testing.T) {
	if _, err := CandidateRow(candidateHeader, warehouse.Row{"c1", "BR"}); err == nil {
		t.Error("short row accepted")
	}

	_, err := CandidateRow(candidateHeader, warehouse.Row{
		"c1", "BR", "", "", "5", "not-json", "[]", "available", "false",
	})
	if err == nil {
		t.Error("malformed jobTitles accepted")
	}
}

func TestProfileRow(t *testing.T) {
	header := []string{"candidateId", "resumeProfile"}
	doc, err := ProfileRow(header, warehouse.Row{"c1", "Senior engineer.\nMSc."})
	if err != nil {
		t.Fatalf("ProfileRow: %v", err)
	}
	if doc.CandidateID() != "c1" || doc["resumeProfile"] != "Senior engineer.\nMSc." {
		t.Errorf("doc = %#v", doc)
	}

	if _, err := ProfileRow(header, warehouse.Row{"c1"}); err == nil {
		t.Error("short row accepted")
	}
}

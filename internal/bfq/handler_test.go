package bfq

import (
	"context"
	"errors"
	"testing"

	"github.com/vibhu2208/candidate-indexer/internal/blob"
	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/vector"
)

type mockStore struct {
	objects map[string][]byte
	err     error
}

func (m *mockStore) Download(ctx context.Context, key string) (*blob.Object, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, nil
	}
	return &blob.Object{Data: data}, nil
}

type mockMetadata struct {
	existing map[string]bool
	updates  []domain.Doc
}

func (m *mockMetadata) Exists(ctx context.Context, alias, id string) (bool, error) {
	return m.existing[id], nil
}

func (m *mockMetadata) UpdateDocument(ctx context.Context, alias, id string, fields domain.Doc) {
	m.updates = append(m.updates, fields)
}

type mockVector struct {
	calls []struct {
		docs         []domain.Doc
		updateVector bool
	}
}

func (m *mockVector) Index(ctx context.Context, alias string, docs []domain.Doc, updateVector bool) (*vector.Result, error) {
	m.calls = append(m.calls, struct {
		docs         []domain.Doc
		updateVector bool
	}{docs, updateVector})
	return &vector.Result{IndexedCount: len(docs)}, nil
}

func newTestHandler(objects map[string][]byte) (*Handler, *mockMetadata, *mockVector) {
	store := &mockStore{objects: objects}
	meta := &mockMetadata{existing: map[string]bool{"c1": true}}
	vec := &mockVector{}
	return NewHandler(store, meta, vec, "candidates", ""), meta, vec
}

func TestUpdateParsesAndMergesAnswers(t *testing.T) {
	h, meta, vec := newTestHandler(map[string][]byte{
		SchemaKey: []byte(testSchema),
		"answers/c1.json": []byte(`{
			"lastUpdate": "2024-03-01T10:00:00Z",
			"domains": ["fintech"],
			"answers": [{ "questionId": "experienceYears", "value": 6 }]
		}`),
	})

	err := h.Handle(context.Background(), domain.IndexItemMessage{
		Operation:   domain.OpUpdate,
		CandidateID: "c1",
		ObjectKey:   "answers/c1.json",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(meta.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(meta.updates))
	}
	update := meta.updates[0]
	if _, ok := update["answers"]; ok {
		t.Error("raw answers leaked into the index update")
	}
	answers := update["bfqAnswers"].(domain.Doc)
	if answers["experienceYears"].(domain.Doc)["level"] != 2 {
		t.Errorf("bfqAnswers = %#v", answers)
	}

	if len(vec.calls) != 1 {
		t.Fatalf("vector calls = %d, want 1", len(vec.calls))
	}
	call := vec.calls[0]
	if call.updateVector {
		t.Error("answers update must not touch vectors")
	}
	if got := call.docs[0].CandidateID(); got != "c1" {
		t.Errorf("vector doc candidate id = %q", got)
	}
}

func TestUpdateJobRoleAnswersPassThrough(t *testing.T) {
	// No schema object: the job-role path must not need one.
	h, meta, _ := newTestHandler(map[string][]byte{
		"answers-job-role/c1.json": []byte(`{"careerGoals": "lead a platform team"}`),
	})

	err := h.Handle(context.Background(), domain.IndexItemMessage{
		Operation:   domain.OpUpdate,
		CandidateID: "c1",
		ObjectKey:   "answers-job-role/c1.json",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(meta.updates) != 1 || meta.updates[0]["careerGoals"] != "lead a platform team" {
		t.Errorf("updates = %#v", meta.updates)
	}
}

func TestUpdateSkipsWhenMetadataDocumentMissing(t *testing.T) {
	h, meta, vec := newTestHandler(map[string][]byte{SchemaKey: []byte(testSchema)})

	err := h.Handle(context.Background(), domain.IndexItemMessage{
		Operation:   domain.OpUpdate,
		CandidateID: "unknown",
		ObjectKey:   "answers/unknown.json",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(meta.updates) != 0 || len(vec.calls) != 0 {
		t.Error("indices touched for unindexed candidate")
	}
}

func TestUpdateMissingSchemaErrors(t *testing.T) {
	h, _, _ := newTestHandler(map[string][]byte{
		"answers/c1.json": []byte(`{"answers": []}`),
	})

	err := h.Handle(context.Background(), domain.IndexItemMessage{
		Operation:   domain.OpUpdate,
		CandidateID: "c1",
		ObjectKey:   "answers/c1.json",
	})
	if !errors.Is(err, domain.ErrSchemaNotLoaded) {
		t.Fatalf("err = %v, want ErrSchemaNotLoaded", err)
	}
}

func TestUpdateMissingAnswersObjectSkips(t *testing.T) {
	h, meta, _ := newTestHandler(map[string][]byte{SchemaKey: []byte(testSchema)})

	err := h.Handle(context.Background(), domain.IndexItemMessage{
		Operation:   domain.OpUpdate,
		CandidateID: "c1",
		ObjectKey:   "answers/c1.json",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(meta.updates) != 0 {
		t.Errorf("updates = %#v", meta.updates)
	}
}

func TestRemoveAnswersNullsQuestionnaireFields(t *testing.T) {
	h, meta, vec := newTestHandler(nil)

	err := h.Handle(context.Background(), domain.IndexItemMessage{
		Operation:   domain.OpRemove,
		CandidateID: "c1",
		ObjectKey:   "answers/c1.json",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(meta.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(meta.updates))
	}
	update := meta.updates[0]
	for _, field := range []string{
		"acceptableCompensation", "desiredCompensation", "workingHours",
		"availabilityToStart", "domains", "bfqAnswers", "bfqKeywords",
	} {
		if v, ok := update[field]; !ok || v != nil {
			t.Errorf("field %s = %v, want explicit nil", field, v)
		}
	}

	if len(vec.calls) != 1 || vec.calls[0].updateVector {
		t.Fatalf("vector calls = %#v", vec.calls)
	}
	if got := vec.calls[0].docs[0].CandidateID(); got != "c1" {
		t.Errorf("vector doc candidate id = %q", got)
	}
}

func TestRemoveJobRoleAnswers(t *testing.T) {
	h, meta, _ := newTestHandler(nil)

	err := h.Handle(context.Background(), domain.IndexItemMessage{
		Operation:   domain.OpRemove,
		CandidateID: "c1",
		ObjectKey:   "answers-job-role/c1.json",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(meta.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(meta.updates))
	}
	update := meta.updates[0]
	for _, field := range []string{"careerGoals", "currentCompensationPeriod", "currentCompensation"} {
		if v, ok := update[field]; !ok || v != nil {
			t.Errorf("field %s = %v, want explicit nil", field, v)
		}
	}
	if _, ok := update["bfqAnswers"]; ok {
		t.Error("job-role removal must not clear questionnaire answers")
	}
}

func TestRemoveUnknownPrefixSkips(t *testing.T) {
	h, meta, vec := newTestHandler(nil)

	err := h.Handle(context.Background(), domain.IndexItemMessage{
		Operation:   domain.OpRemove,
		CandidateID: "c1",
		ObjectKey:   "avatars/c1.png",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(meta.updates) != 0 || len(vec.calls) != 0 {
		t.Error("indices touched for unknown key")
	}
}

func TestHandleIgnoresIncompleteMessages(t *testing.T) {
	h, meta, vec := newTestHandler(nil)

	for _, item := range []domain.IndexItemMessage{
		{Operation: domain.OpUpdate, CandidateID: "c1"},
		{Operation: domain.OpUpdate, ObjectKey: "answers/c1.json"},
		{Operation: domain.OpRemove, CandidateID: "c1"},
		{Operation: domain.OpNone},
	} {
		if err := h.Handle(context.Background(), item); err != nil {
			t.Fatalf("Handle(%+v): %v", item, err)
		}
	}
	if len(meta.updates) != 0 || len(vec.calls) != 0 {
		t.Error("indices touched for incomplete messages")
	}
}

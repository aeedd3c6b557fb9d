package indexer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/metrics"
	"github.com/vibhu2208/candidate-indexer/internal/queue"
	"github.com/vibhu2208/candidate-indexer/internal/search"
	"github.com/vibhu2208/candidate-indexer/internal/vector"
	"github.com/vibhu2208/candidate-indexer/internal/warehouse"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

// stubEngine serves canned result pages keyed by page token and records
// how many queries were started.
type stubEngine struct {
	pages   map[string]*warehouse.ResultPage
	started int
}

func (e *stubEngine) StartQuery(ctx context.Context, sql string) (string, error) {
	e.started++
	return "q-1", nil
}

func (e *stubEngine) QueryStatus(ctx context.Context, queryID string) (warehouse.Status, error) {
	return warehouse.Status{State: warehouse.StateSucceeded}, nil
}

func (e *stubEngine) FetchResults(ctx context.Context, queryID, pageToken string, maxResults int) (*warehouse.ResultPage, error) {
	return e.pages[pageToken], nil
}

// stubMeta reports ids it has never seen before as created.
type stubMeta struct {
	seen    map[string]bool
	upserts [][]domain.Doc
}

func (m *stubMeta) EnsureAlias(ctx context.Context, alias string) error { return nil }

func (m *stubMeta) Upsert(ctx context.Context, alias string, docs []domain.Doc) (*search.Result, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	res := &search.Result{IndexedCount: len(docs)}
	for _, doc := range docs {
		if id := doc.CandidateID(); !m.seen[id] {
			m.seen[id] = true
			res.Created = append(res.Created, id)
		}
	}
	m.upserts = append(m.upserts, docs)
	return res, nil
}

type stubVec struct {
	calls []struct {
		docs         []domain.Doc
		updateVector bool
	}
}

func (v *stubVec) EnsureAlias(ctx context.Context, alias string) error { return nil }

func (v *stubVec) Index(ctx context.Context, alias string, docs []domain.Doc, updateVector bool) (*vector.Result, error) {
	v.calls = append(v.calls, struct {
		docs         []domain.Doc
		updateVector bool
	}{docs, updateVector})
	return &vector.Result{IndexedCount: len(docs)}, nil
}

type stubPub struct {
	batches []struct {
		queue string
		msgs  []queue.Outbound
		delay time.Duration
	}
}

func (p *stubPub) SendBatch(ctx context.Context, queueName string, msgs []queue.Outbound, delay time.Duration) error {
	p.batches = append(p.batches, struct {
		queue string
		msgs  []queue.Outbound
		delay time.Duration
	}{queueName, msgs, delay})
	return nil
}

func profilePages() map[string]*warehouse.ResultPage {
	return map[string]*warehouse.ResultPage{
		"": {
			Rows: []warehouse.Row{
				{"candidateId", "resumeProfile"},
				{"c1", "Engineer."},
				{"c2", "Designer."},
			},
			NextToken: "t1",
		},
		"t1": {
			Rows:      []warehouse.Row{{"c3", "Analyst."}},
			NextToken: "",
		},
	}
}

func testExtraction(t *testing.T) Extraction {
	t.Helper()
	return Extraction{
		Name:       "profiles",
		CursorPath: filepath.Join(t.TempDir(), "profiles.cursor.json"),
		query:      profilesQuery,
		transform:  ProfileRow,
	}
}

func newTestIndexer(eng *stubEngine) (*Indexer, *stubMeta, *stubVec, *stubPub) {
	meta := &stubMeta{}
	vec := &stubVec{}
	pub := &stubPub{}
	ix := New(warehouse.NewPaginator(eng, time.Millisecond), meta, vec, pub, Options{
		Alias:       "candidates",
		ResumeQueue: "resume-queue",
		BfqQueue:    "bfq-queue",
		Delay:       time.Minute,
		DateDiff:    2,
	})
	return ix, meta, vec, pub
}

func TestRunIndexesAndFansOutCreated(t *testing.T) {
	eng := &stubEngine{pages: profilePages()}
	ix, meta, vec, pub := newTestIndexer(eng)
	ext := testExtraction(t)

	done, err := ix.Run(context.Background(), ext)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !done {
		t.Fatal("run did not complete")
	}

	if len(meta.upserts) != 2 || len(meta.upserts[0]) != 2 || len(meta.upserts[1]) != 1 {
		t.Errorf("upserts = %v", meta.upserts)
	}
	if len(vec.calls) != 2 {
		t.Fatalf("vector calls = %d, want 2", len(vec.calls))
	}
	for _, call := range vec.calls {
		if call.updateVector {
			t.Error("bulk extraction must not touch vectors")
		}
	}

	// Two pages, each fanning out to both queues.
	if len(pub.batches) != 4 {
		t.Fatalf("fan-out batches = %d, want 4", len(pub.batches))
	}
	first := pub.batches[0]
	if first.queue != "resume-queue" || first.delay != time.Minute {
		t.Errorf("batch = %+v", first)
	}
	var item domain.IndexItemMessage
	if err := json.Unmarshal([]byte(first.msgs[0].Body), &item); err != nil {
		t.Fatalf("fan-out body: %v", err)
	}
	if item.Operation != domain.OpUpdate || item.CandidateID != "c1" {
		t.Errorf("fan-out message = %+v", item)
	}
	if first.msgs[0].MessageSource != domain.MessageSourceIndexer {
		t.Errorf("message source = %q", first.msgs[0].MessageSource)
	}

	if _, err := os.Stat(ext.CursorPath); !os.IsNotExist(err) {
		t.Error("cursor file survived a completed run")
	}
}

func TestRunSkipsFanOutForExistingCandidates(t *testing.T) {
	eng := &stubEngine{pages: profilePages()}
	ix, meta, _, pub := newTestIndexer(eng)
	meta.seen = map[string]bool{"c1": true, "c2": true, "c3": true}

	if _, err := ix.Run(context.Background(), testExtraction(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pub.batches) != 0 {
		t.Errorf("fan-out batches = %v, want none", pub.batches)
	}
}

func TestRunPausesAndResumes(t *testing.T) {
	eng := &stubEngine{pages: profilePages()}
	ix, meta, _, _ := newTestIndexer(eng)
	ext := testExtraction(t)

	// A deadline inside the early-exit threshold pauses after the first
	// page.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	done, err := ix.Run(ctx, ext)
	cancel()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if done {
		t.Fatal("run completed despite tight deadline")
	}
	if _, err := os.Stat(ext.CursorPath); err != nil {
		t.Fatalf("cursor not persisted: %v", err)
	}

	done, err = ix.Run(context.Background(), ext)
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if !done {
		t.Fatal("resumed run did not complete")
	}
	if eng.started != 1 {
		t.Errorf("queries started = %d, want 1", eng.started)
	}
	if len(meta.upserts) != 2 {
		t.Errorf("upserts = %d, want 2", len(meta.upserts))
	}
	if _, err := os.Stat(ext.CursorPath); !os.IsNotExist(err) {
		t.Error("cursor file survived a completed run")
	}
}

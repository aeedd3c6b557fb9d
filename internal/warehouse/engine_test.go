package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
)

func TestHTTPEngineStartQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/queries" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req startQueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Database != "hiring" {
			t.Errorf("database = %q, want hiring", req.Database)
		}
		if req.Query == "" {
			t.Error("empty query submitted")
		}
		json.NewEncoder(w).Encode(startQueryResponse{QueryID: "q-42"})
	}))
	defer srv.Close()

	e := NewHTTPEngine(srv.URL, "hiring", "spill://results")
	id, err := e.StartQuery(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("StartQuery: %v", err)
	}
	if id != "q-42" {
		t.Errorf("query id = %q, want q-42", id)
	}
}

func TestHTTPEngineStartQueryRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	e := NewHTTPEngine(srv.URL, "hiring", "")
	if _, err := e.StartQuery(context.Background(), "SELECT"); !errors.Is(err, domain.ErrQueryFailed) {
		t.Errorf("expected ErrQueryFailed, got %v", err)
	}
}

func TestHTTPEngineQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/queries/q-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Status{State: StateFailed, Reason: "syntax error"})
	}))
	defer srv.Close()

	e := NewHTTPEngine(srv.URL, "hiring", "")
	st, err := e.QueryStatus(context.Background(), "q-42")
	if err != nil {
		t.Fatalf("QueryStatus: %v", err)
	}
	if st.State != StateFailed || st.Reason != "syntax error" {
		t.Errorf("got %+v", st)
	}
}

func TestHTTPEngineFetchResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/queries/q-42/results" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("pageToken"); got != "tok-2" {
			t.Errorf("pageToken = %q, want tok-2", got)
		}
		json.NewEncoder(w).Encode(ResultPage{
			Rows:      []Row{{"c1", "Ada"}},
			NextToken: "tok-3",
		})
	}))
	defer srv.Close()

	e := NewHTTPEngine(srv.URL, "hiring", "")
	page, err := e.FetchResults(context.Background(), "q-42", "tok-2", 0)
	if err != nil {
		t.Fatalf("FetchResults: %v", err)
	}
	if len(page.Rows) != 1 || page.Rows[0][1] != "Ada" {
		t.Errorf("rows = %v", page.Rows)
	}
	if page.NextToken != "tok-3" {
		t.Errorf("next token = %q", page.NextToken)
	}
}

func TestQueryStateTerminal(t *testing.T) {
	for state, want := range map[QueryState]bool{
		StateQueued:    false,
		StateRunning:   false,
		StateSucceeded: true,
		StateFailed:    true,
	} {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}

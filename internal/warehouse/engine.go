// Package warehouse talks to the analytics warehouse query gateway and
// drives resumable pagination over large result sets.
package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
)

// QueryState is the lifecycle state of a submitted warehouse query.
type QueryState string

const (
	StateQueued    QueryState = "QUEUED"
	StateRunning   QueryState = "RUNNING"
	StateSucceeded QueryState = "SUCCEEDED"
	StateFailed    QueryState = "FAILED"
)

// Terminal reports whether the query has finished, successfully or not.
func (s QueryState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Status is the current state of a query plus a failure reason when failed.
type Status struct {
	State  QueryState `json:"state"`
	Reason string     `json:"reason,omitempty"`
}

// Row is a single result row. Cells are positional and may be empty.
type Row []string

// ResultPage is one page of query results. NextToken is empty on the
// final page. The very first row of the very first page is the column
// header row.
type ResultPage struct {
	Rows      []Row  `json:"rows"`
	NextToken string `json:"nextToken,omitempty"`
}

// Engine submits queries to the warehouse and fetches paged results.
type Engine interface {
	StartQuery(ctx context.Context, sql string) (string, error)
	QueryStatus(ctx context.Context, queryID string) (Status, error)
	FetchResults(ctx context.Context, queryID, pageToken string, maxResults int) (*ResultPage, error)
}

// HTTPEngine is an Engine backed by the warehouse HTTP gateway.
type HTTPEngine struct {
	endpoint       string
	database       string
	outputLocation string
	httpClient     *http.Client
}

// NewHTTPEngine creates an HTTPEngine for the given gateway endpoint.
// Queries run against database and write spill output to outputLocation.
func NewHTTPEngine(endpoint, database, outputLocation string) *HTTPEngine {
	return &HTTPEngine{
		endpoint:       strings.TrimRight(endpoint, "/"),
		database:       database,
		outputLocation: outputLocation,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type startQueryRequest struct {
	Query          string `json:"query"`
	Database       string `json:"database"`
	OutputLocation string `json:"outputLocation,omitempty"`
}

type startQueryResponse struct {
	QueryID string `json:"queryId"`
}

// StartQuery submits sql for asynchronous execution and returns the
// query handle.
func (e *HTTPEngine) StartQuery(ctx context.Context, sql string) (string, error) {
	body, err := json.Marshal(startQueryRequest{
		Query:          sql,
		Database:       e.database,
		OutputLocation: e.outputLocation,
	})
	if err != nil {
		return "", fmt.Errorf("encoding query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/v1/queries", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("submitting query: unexpected status %d: %w", resp.StatusCode, domain.ErrQueryFailed)
	}

	var out startQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding query response: %w", err)
	}
	if out.QueryID == "" {
		return "", fmt.Errorf("gateway returned empty query id: %w", domain.ErrQueryFailed)
	}
	return out.QueryID, nil
}

// QueryStatus fetches the current lifecycle state of queryID.
func (e *HTTPEngine) QueryStatus(ctx context.Context, queryID string) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/v1/queries/"+url.PathEscape(queryID), nil)
	if err != nil {
		return Status{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("fetching query status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("fetching query status: unexpected status %d", resp.StatusCode)
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("decoding query status: %w", err)
	}
	return st, nil
}

// FetchResults retrieves one page of results for queryID. An empty
// pageToken fetches the first page. maxResults of zero uses the
// gateway default page size.
func (e *HTTPEngine) FetchResults(ctx context.Context, queryID, pageToken string, maxResults int) (*ResultPage, error) {
	u := e.endpoint + "/v1/queries/" + url.PathEscape(queryID) + "/results"
	q := url.Values{}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	if maxResults > 0 {
		q.Set("maxResults", fmt.Sprintf("%d", maxResults))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching results: unexpected status %d", resp.StatusCode)
	}

	var page ResultPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding results page: %w", err)
	}
	return &page, nil
}

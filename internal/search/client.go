// Package search writes per-candidate metadata documents to the primary
// search index behind a write alias.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/metrics"
)

const indexPrefix = "candidates"

const (
	statusUpdated = http.StatusOK
	statusCreated = http.StatusCreated
)

// Result reports the outcome of a bulk upsert. Created holds the ids
// written for the first time; re-upserting an existing id counts toward
// IndexedCount only.
type Result struct {
	IndexedCount int
	Created      []string
}

// Client is the metadata index client. All writes go through the alias
// so the backing index can be swapped without touching callers.
type Client struct {
	os *opensearch.Client
}

// NewClient connects to the metadata search endpoint.
func NewClient(endpoint, username, password string) (*Client, error) {
	os, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{endpoint},
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating search client: %w", err)
	}
	return &Client{os: os}, nil
}

// EnsureAlias creates the metadata index and its write alias when the
// alias does not exist yet. Existing aliases are left untouched.
func (c *Client) EnsureAlias(ctx context.Context, alias string) error {
	log := logger.FromContext(ctx)

	existsRes, err := opensearchapi.IndicesExistsAliasRequest{Name: []string{alias}}.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("checking alias %s: %w", alias, err)
	}
	existsRes.Body.Close()
	if existsRes.StatusCode == http.StatusOK {
		log.Info("alias already exists", zap.String("alias", alias))
		return nil
	}

	indexName := fmt.Sprintf("%s_%d", indexPrefix, time.Now().UnixMilli())
	body, err := json.Marshal(metadataIndexBody())
	if err != nil {
		return fmt.Errorf("encoding index mapping: %w", err)
	}

	createRes, err := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", indexName, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("creating index %s: %s", indexName, createRes.String())
	}

	if err := addWriteAlias(ctx, c.os, indexName, alias); err != nil {
		return err
	}
	log.Info("created index with write alias",
		zap.String("index", indexName),
		zap.String("alias", alias))
	return nil
}

// addWriteAlias points alias at indexName as the write index.
func addWriteAlias(ctx context.Context, os *opensearch.Client, indexName, alias string) error {
	actions := map[string]any{
		"actions": []any{
			map[string]any{"add": map[string]any{"index": indexName, "alias": alias, "is_write_index": true}},
		},
	}
	body, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encoding alias actions: %w", err)
	}

	res, err := opensearchapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(body)}.Do(ctx, os)
	if err != nil {
		return fmt.Errorf("adding alias %s to %s: %w", alias, indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("adding alias %s to %s: %s", alias, indexName, res.String())
	}
	return nil
}

type bulkItemDetail struct {
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

type bulkResponse struct {
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemDetail `json:"items"`
}

// Upsert writes documents keyed by candidate id through the alias. Each
// document merges over the stored one; absent fields are preserved and
// explicit nulls clear. The per-item outcome distinguishes a first
// write (201) from a merge (200), so Created only ever names a given id
// once across repeated runs.
func (c *Client) Upsert(ctx context.Context, alias string, docs []domain.Doc) (*Result, error) {
	log := logger.FromContext(ctx)
	if len(docs) == 0 {
		return &Result{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		id := doc.CandidateID()
		if id == "" {
			log.Warn("skipping document without candidate id")
			continue
		}
		if err := enc.Encode(map[string]any{"update": map[string]any{"_index": alias, "_id": id}}); err != nil {
			return nil, fmt.Errorf("encoding bulk action: %w", err)
		}
		if err := enc.Encode(map[string]any{"doc": doc, "doc_as_upsert": true}); err != nil {
			return nil, fmt.Errorf("encoding bulk document: %w", err)
		}
	}
	if buf.Len() == 0 {
		return &Result{}, nil
	}

	res, err := opensearchapi.BulkRequest{Body: &buf}.Do(ctx, c.os)
	if err != nil {
		return nil, fmt.Errorf("bulk upsert: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("bulk upsert: %s", res.String())
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding bulk response: %w", err)
	}

	result := &Result{}
	for _, item := range parsed.Items {
		detail, ok := item["update"]
		if !ok {
			continue
		}
		switch detail.Status {
		case statusCreated:
			result.IndexedCount++
			result.Created = append(result.Created, detail.ID)
			metrics.DocumentsIndexed.WithLabelValues("metadata", "created").Inc()
		case statusUpdated:
			result.IndexedCount++
			metrics.DocumentsIndexed.WithLabelValues("metadata", "updated").Inc()
		default:
			metrics.DocumentsIndexed.WithLabelValues("metadata", "failed").Inc()
			log.Warn("bulk item rejected",
				zap.String("candidate_id", detail.ID),
				zap.Int("status", detail.Status),
				zap.ByteString("reason", detail.Error))
		}
	}

	log.Info("upserted metadata documents",
		zap.String("alias", alias),
		zap.Int("indexed", result.IndexedCount),
		zap.Int("created", len(result.Created)))
	return result, nil
}

// Exists reports whether a metadata document is present for id.
func (c *Client) Exists(ctx context.Context, alias, id string) (bool, error) {
	res, err := opensearchapi.ExistsRequest{Index: alias, DocumentID: id}.Do(ctx, c.os)
	if err != nil {
		return false, fmt.Errorf("checking document %s: %w", id, err)
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("checking document %s: unexpected status %d", id, res.StatusCode)
	}
}

// Get fetches the stored metadata document for id. Returns
// domain.ErrDocumentNotFound when absent.
func (c *Client) Get(ctx context.Context, alias, id string) (domain.Doc, error) {
	res, err := opensearchapi.GetRequest{Index: alias, DocumentID: id}.Do(ctx, c.os)
	if err != nil {
		return nil, fmt.Errorf("fetching document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetching document %s: %s", id, res.String())
	}

	var envelope struct {
		Source domain.Doc `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", id, err)
	}
	return envelope.Source, nil
}

// UpdateDocument merges fields into the stored document for id. A nil
// field value clears that field. Failures are logged and swallowed; the
// surrounding queue redelivers the message that produced the update.
func (c *Client) UpdateDocument(ctx context.Context, alias, id string, fields domain.Doc) {
	log := logger.FromContext(ctx)

	body, err := json.Marshal(map[string]any{"doc": fields})
	if err != nil {
		log.Error("encoding partial update", zap.String("candidate_id", id), zap.Error(err))
		return
	}

	res, err := opensearchapi.UpdateRequest{
		Index:      alias,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}.Do(ctx, c.os)
	if err != nil {
		log.Error("updating document", zap.String("candidate_id", id), zap.Error(err))
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Error("updating document",
			zap.String("candidate_id", id),
			zap.Int("status", res.StatusCode),
			zap.String("response", res.String()))
		return
	}
	io.Copy(io.Discard, res.Body)
	log.Info("updated document", zap.String("candidate_id", id), zap.String("alias", alias))
}

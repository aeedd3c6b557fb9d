// Package vector reconciles per-chunk embedding documents in the vector
// search index with the per-candidate metadata they denormalize.
//
// The index holds one document per resume chunk, so a candidate maps to
// zero or more documents. Two write modes exist and they are asymmetric
// on purpose: metadata-only changes merge into every existing chunk in
// place, while a re-parsed resume deletes all chunks and indexes fresh
// ones, because chunk count is not stable across parses.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

// lookupSize bounds the terms lookup. One batch never approaches this
// many chunks, so a single page is enough.
const lookupSize = 10000

const (
	statusUpdated = http.StatusOK
	statusCreated = http.StatusCreated
)

// Result reports per-item outcomes of one Index call.
type Result struct {
	IndexedCount int
	UpdatedCount int
}

// Client is the vector index client.
type Client struct {
	os *opensearch.Client
}

// NewClient connects to the vector search endpoint.
func NewClient(endpoint, username, password string) (*Client, error) {
	os, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{endpoint},
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector search client: %w", err)
	}
	return &Client{os: os}, nil
}

// EnsureAlias creates the knn index and its write alias when the alias
// does not exist yet.
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
	body, err := json.Marshal(vectorIndexBody())
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

	actions, err := json.Marshal(map[string]any{
		"actions": []any{
			map[string]any{"add": map[string]any{"index": indexName, "alias": alias, "is_write_index": true}},
		},
	})
	if err != nil {
		return fmt.Errorf("encoding alias actions: %w", err)
	}
	aliasRes, err := opensearchapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(actions)}.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("adding alias %s to %s: %w", alias, indexName, err)
	}
	defer aliasRes.Body.Close()
	if aliasRes.IsError() {
		return fmt.Errorf("adding alias %s to %s: %s", alias, indexName, aliasRes.String())
	}

	log.Info("created vector index with write alias",
		zap.String("index", indexName),
		zap.String("alias", alias))
	return nil
}

// hit is one stored chunk document with its store-assigned id.
type hit struct {
	ID     string     `json:"_id"`
	Source domain.Doc `json:"_source"`
}

// Index writes documents for the candidates named in docs.
//
// With updateVector false, docs carry metadata only: every stored chunk
// of a listed candidate is merged with the new metadata in place, and a
// candidate with no stored chunks gets a single chunk-less placeholder.
//
// With updateVector true, docs are fresh chunks: all stored chunks of
// the listed candidates are deleted and each new chunk is indexed,
// carrying forward previously stored metadata so a resume re-parse
// never loses enrichment fields.
func (c *Client) Index(ctx context.Context, alias string, docs []domain.Doc, updateVector bool) (*Result, error) {
	log := logger.FromContext(ctx)

	ids := candidateIDs(docs)
	if len(ids) == 0 {
		log.Info("no candidate ids to index")
		return &Result{}, nil
	}

	existing, err := c.lookupByCandidateIDs(ctx, alias, ids)
	if err != nil {
		return nil, err
	}

	if updateVector {
		return c.replaceChunks(ctx, alias, docs, existing)
	}
	return c.mergeMetadata(ctx, alias, docs, existing)
}

// replaceChunks deletes every stored chunk for the batch's candidates
// and indexes the new ones, preserving stored metadata.
func (c *Client) replaceChunks(ctx context.Context, alias string, docs []domain.Doc, existing []hit) (*Result, error) {
	storedMeta := make(map[string]domain.Doc, len(existing))
	deleteIDs := make([]string, 0, len(existing))
	for _, h := range existing {
		deleteIDs = append(deleteIDs, h.ID)
		storedMeta[h.Source.CandidateID()] = h.Source
	}

	enriched := make([]domain.Doc, 0, len(docs))
	for _, doc := range docs {
		enriched = append(enriched, storedMeta[doc.CandidateID()].Merge(doc))
	}

	if err := c.deleteBulk(ctx, alias, deleteIDs); err != nil {
		return nil, err
	}
	indexed, err := c.indexBulk(ctx, alias, enriched)
	if err != nil {
		return nil, err
	}
	return &Result{IndexedCount: indexed}, nil
}

// mergeMetadata merges new metadata into every stored chunk and indexes
// placeholders for candidates with no chunks yet.
func (c *Client) mergeMetadata(ctx context.Context, alias string, docs []domain.Doc, existing []hit) (*Result, error) {
	metaByID := make(map[string]domain.Doc, len(docs))
	for _, doc := range docs {
		metaByID[doc.CandidateID()] = doc
	}

	type update struct {
		id  string
		doc domain.Doc
	}
	updates := make([]update, 0, len(existing))
	covered := make(map[string]bool, len(existing))
	for _, h := range existing {
		cid := h.Source.CandidateID()
		updates = append(updates, update{id: h.ID, doc: h.Source.Merge(metaByID[cid])})
		covered[cid] = true
	}

	var placeholders []domain.Doc
	for _, doc := range docs {
		if !covered[doc.CandidateID()] {
			placeholders = append(placeholders, doc)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, u := range updates {
		if err := enc.Encode(map[string]any{"update": map[string]any{"_index": alias, "_id": u.id}}); err != nil {
			return nil, fmt.Errorf("encoding bulk action: %w", err)
		}
		if err := enc.Encode(map[string]any{"doc": u.doc}); err != nil {
			return nil, fmt.Errorf("encoding bulk document: %w", err)
		}
	}
	updated := 0
	if buf.Len() > 0 {
		var err error
		updated, err = c.runBulk(ctx, &buf, "update")
		if err != nil {
			return nil, err
		}
	}

	indexed, err := c.indexBulk(ctx, alias, placeholders)
	if err != nil {
		return nil, err
	}
	return &Result{IndexedCount: indexed, UpdatedCount: updated}, nil
}

// Clear deletes every stored chunk for ids, leaving no vector content
// behind. Used when a candidate's resume is removed.
func (c *Client) Clear(ctx context.Context, alias string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	existing, err := c.lookupByCandidateIDs(ctx, alias, ids)
	if err != nil {
		return err
	}
	deleteIDs := make([]string, 0, len(existing))
	for _, h := range existing {
		deleteIDs = append(deleteIDs, h.ID)
	}
	return c.deleteBulk(ctx, alias, deleteIDs)
}

// lookupByCandidateIDs fetches every stored chunk whose candidateId is
// in ids, in one terms query.
func (c *Client) lookupByCandidateIDs(ctx context.Context, alias string, ids []string) ([]hit, error) {
	body, err := json.Marshal(map[string]any{
		"size":  lookupSize,
		"query": map[string]any{"terms": map[string]any{"candidateId": ids}},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding lookup query: %w", err)
	}

	res, err := opensearchapi.SearchRequest{
		Index: []string{alias},
		Body:  bytes.NewReader(body),
	}.Do(ctx, c.os)
	if err != nil {
		return nil, fmt.Errorf("looking up chunks: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("looking up chunks: %s", res.String())
	}

	var envelope struct {
		Hits struct {
			Hits []hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}
	return envelope.Hits.Hits, nil
}

// indexBulk writes docs as new documents. No external id is supplied;
// the store assigns one per chunk.
func (c *Client) indexBulk(ctx context.Context, alias string, docs []domain.Doc) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_index": alias}}); err != nil {
			return 0, fmt.Errorf("encoding bulk action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return 0, fmt.Errorf("encoding bulk document: %w", err)
		}
	}
	return c.runBulk(ctx, &buf, "index")
}

// deleteBulk removes documents by store id.
func (c *Client) deleteBulk(ctx context.Context, alias string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, id := range ids {
		if err := enc.Encode(map[string]any{"delete": map[string]any{"_index": alias, "_id": id}}); err != nil {
			return fmt.Errorf("encoding bulk action: %w", err)
		}
	}
	deleted, err := c.runBulk(ctx, &buf, "delete")
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("deleted stale chunks", zap.Int("deleted", deleted))
	return nil
}

// runBulk executes one bulk request and counts items whose op succeeded.
func (c *Client) runBulk(ctx context.Context, body *bytes.Buffer, op string) (int, error) {
	log := logger.FromContext(ctx)

	res, err := opensearchapi.BulkRequest{Body: body}.Do(ctx, c.os)
	if err != nil {
		return 0, fmt.Errorf("bulk %s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk %s: %s", op, res.String())
	}

	var parsed struct {
		Items []map[string]struct {
			ID     string          `json:"_id"`
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error,omitempty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding bulk response: %w", err)
	}

	count := 0
	for _, item := range parsed.Items {
		detail, ok := item[op]
		if !ok {
			continue
		}
		if detail.Status == statusUpdated || detail.Status == statusCreated {
			count++
			continue
		}
		metrics.DocumentsIndexed.WithLabelValues("vector", "failed").Inc()
		log.Warn("bulk item rejected",
			zap.String("op", op),
			zap.String("doc_id", detail.ID),
			zap.Int("status", detail.Status),
			zap.ByteString("reason", detail.Error))
	}
	if op != "delete" {
		metrics.DocumentsIndexed.WithLabelValues("vector", op).Add(float64(count))
	}
	return count, nil
}

func candidateIDs(docs []domain.Doc) []string {
	seen := make(map[string]bool, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := doc.CandidateID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Package resume turns uploaded resume documents into searchable text
// and embedding chunks.
package resume

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/blob"
	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/embedding"
	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/vector"
)

// metadataIndex is the slice of the metadata index client the processor
// needs.
type metadataIndex interface {
	Exists(ctx context.Context, alias, id string) (bool, error)
	Get(ctx context.Context, alias, id string) (domain.Doc, error)
	UpdateDocument(ctx context.Context, alias, id string, fields domain.Doc)
}

// vectorIndex writes and clears chunk documents.
type vectorIndex interface {
	Index(ctx context.Context, alias string, docs []domain.Doc, updateVector bool) (*vector.Result, error)
	Clear(ctx context.Context, alias string, ids []string) error
}

// summarizer condenses extracted text.
type summarizer interface {
	Summarize(ctx context.Context, docs ...string) string
}

// chunkEmbedder embeds split chunks.
type chunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []string) ([]embedding.ChunkEmbedding, error)
}

// textSplitter produces overlapping chunks.
type textSplitter interface {
	Split(text string) []string
}

// Processor handles resume index messages end to end.
type Processor struct {
	store    blob.Store
	meta     metadataIndex
	vec      vectorIndex
	sum      summarizer
	embedder chunkEmbedder
	splitter textSplitter
	alias    string
	extract  func(mime string, data []byte) (string, error)
}

// NewProcessor wires a resume processor.
func NewProcessor(store blob.Store, meta metadataIndex, vec vectorIndex, sum summarizer, embedder chunkEmbedder, splitter textSplitter, alias string) *Processor {
	return &Processor{
		store:    store,
		meta:     meta,
		vec:      vec,
		sum:      sum,
		embedder: embedder,
		splitter: splitter,
		alias:    alias,
		extract:  ExtractText,
	}
}

// Handle dispatches one routed index message. Data problems (missing
// file, unsupported format, unparseable document) are logged and
// swallowed; infrastructure failures return an error so the queue
// redelivers the message.
func (p *Processor) Handle(ctx context.Context, item domain.IndexItemMessage) error {
	switch item.Operation {
	case domain.OpUpdate:
		return p.update(ctx, item)
	case domain.OpRemove:
		return p.remove(ctx, item)
	default:
		return nil
	}
}

func (p *Processor) update(ctx context.Context, item domain.IndexItemMessage) error {
	log := logger.FromContext(ctx)

	candidateID := item.CandidateID
	if candidateID == "" {
		log.Warn("index message without candidate id")
		return nil
	}
	log = log.With(zap.String("candidate_id", candidateID))
	ctx = logger.ContextWithLogger(ctx, log)

	obj, err := p.store.Download(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("downloading resume for %s: %w", candidateID, err)
	}
	if obj == nil {
		log.Warn("no resume object, skipping")
		return nil
	}

	contentType := DetectContentType(ctx, obj.Metadata, obj.Data)
	log.Info("downloaded resume", zap.String("content_type", contentType), zap.Int("bytes", len(obj.Data)))

	exists, err := p.meta.Exists(ctx, p.alias, candidateID)
	if err != nil {
		return fmt.Errorf("checking metadata document for %s: %w", candidateID, err)
	}
	if !exists {
		log.Warn("no metadata document yet, skipping")
		return nil
	}

	resumeFile, err := p.extract(contentType, obj.Data)
	if err != nil {
		log.Warn("failed to extract resume text, skipping", zap.Error(err))
		return nil
	}
	if resumeFile == "" {
		log.Warn("resume extracted to empty text, skipping")
		return nil
	}

	p.meta.UpdateDocument(ctx, p.alias, candidateID, domain.Doc{"resumeFile": resumeFile})

	resumeText := p.sum.Summarize(ctx, resumeFile, p.resumeProfile(ctx, candidateID))

	chunks := p.splitter.Split(resumeText)
	embedded, err := p.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding resume for %s: %w", candidateID, err)
	}
	if len(embedded) == 0 {
		log.Warn("no embeddings produced, vector index untouched")
		return nil
	}

	docs := make([]domain.Doc, 0, len(embedded))
	for _, chunk := range embedded {
		docs = append(docs, domain.Doc{
			domain.FieldCandidateID: candidateID,
			"resumeText":            resumeText,
			"resumeVector":          chunk.Vector,
		})
	}
	if _, err := p.vec.Index(ctx, p.alias, docs, true); err != nil {
		return fmt.Errorf("indexing resume chunks for %s: %w", candidateID, err)
	}

	log.Info("resume indexed", zap.Int("chunks", len(docs)))
	return nil
}

func (p *Processor) remove(ctx context.Context, item domain.IndexItemMessage) error {
	log := logger.FromContext(ctx)

	candidateID := item.CandidateID
	if candidateID == "" {
		log.Warn("index message without candidate id")
		return nil
	}
	log.Info("removing resume content", zap.String("candidate_id", candidateID))

	// The metadata document survives; only resume-derived fields clear.
	p.meta.UpdateDocument(ctx, p.alias, candidateID, domain.Doc{"resumeFile": nil})

	if err := p.vec.Clear(ctx, p.alias, []string{candidateID}); err != nil {
		return fmt.Errorf("clearing resume chunks for %s: %w", candidateID, err)
	}
	return nil
}

// resumeProfile fetches the warehouse-sourced narrative to feed the
// summarizer alongside the uploaded resume. Absence is fine.
func (p *Processor) resumeProfile(ctx context.Context, candidateID string) string {
	doc, err := p.meta.Get(ctx, p.alias, candidateID)
	if err != nil {
		return ""
	}
	profile, _ := doc["resumeProfile"].(string)
	return profile
}

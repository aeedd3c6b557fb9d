package bfq

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/blob"
	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/vector"
)

// Answer documents land under a per-questionnaire prefix.
const (
	answersPrefix        = "answers/"
	jobRoleAnswersPrefix = "answers-job-role/"
)

// metadataIndex is the slice of the metadata index client the handler
// needs.
type metadataIndex interface {
	Exists(ctx context.Context, alias, id string) (bool, error)
	UpdateDocument(ctx context.Context, alias, id string, fields domain.Doc)
}

// vectorIndex merges metadata into existing chunk documents.
type vectorIndex interface {
	Index(ctx context.Context, alias string, docs []domain.Doc, updateVector bool) (*vector.Result, error)
}

// Handler handles BFQ index messages end to end. The questions schema
// is re-read from storage on every answers message so schema edits take
// effect without a restart.
type Handler struct {
	store     blob.Store
	meta      metadataIndex
	vec       vectorIndex
	alias     string
	schemaKey string
}

// NewHandler wires a BFQ handler. An empty schemaKey falls back to
// SchemaKey.
func NewHandler(store blob.Store, meta metadataIndex, vec vectorIndex, alias, schemaKey string) *Handler {
	if schemaKey == "" {
		schemaKey = SchemaKey
	}
	return &Handler{store: store, meta: meta, vec: vec, alias: alias, schemaKey: schemaKey}
}

// Handle dispatches one routed index message. Data problems are logged
// and swallowed; infrastructure failures return an error so the queue
// redelivers the message.
func (h *Handler) Handle(ctx context.Context, item domain.IndexItemMessage) error {
	switch item.Operation {
	case domain.OpUpdate:
		return h.update(ctx, item)
	case domain.OpRemove:
		return h.remove(ctx, item)
	default:
		return nil
	}
}

func (h *Handler) update(ctx context.Context, item domain.IndexItemMessage) error {
	log := logger.FromContext(ctx)

	candidateID := item.CandidateID
	if candidateID == "" || item.ObjectKey == "" {
		log.Warn("index message without candidate id or object key")
		return nil
	}
	log = log.With(zap.String("candidate_id", candidateID), zap.String("object_key", item.ObjectKey))
	ctx = logger.ContextWithLogger(ctx, log)

	exists, err := h.meta.Exists(ctx, h.alias, candidateID)
	if err != nil {
		return fmt.Errorf("checking metadata document for %s: %w", candidateID, err)
	}
	if !exists {
		log.Warn("no metadata document yet, skipping")
		return nil
	}

	parser, err := h.parserFor(ctx, item.ObjectKey)
	if err != nil {
		return err
	}
	if parser == nil {
		log.Warn("no parser for object key, skipping")
		return nil
	}

	obj, err := h.store.Download(ctx, item.ObjectKey)
	if err != nil {
		return fmt.Errorf("downloading answers for %s: %w", candidateID, err)
	}
	if obj == nil {
		log.Warn("no answers object, skipping")
		return nil
	}

	doc, err := parser.Parse(ctx, obj.Data)
	if err != nil {
		log.Warn("failed to parse answers document, skipping", zap.Error(err))
		return nil
	}

	return h.apply(ctx, candidateID, doc)
}

func (h *Handler) remove(ctx context.Context, item domain.IndexItemMessage) error {
	log := logger.FromContext(ctx)

	candidateID := item.CandidateID
	if candidateID == "" || item.ObjectKey == "" {
		log.Warn("index message without candidate id or object key")
		return nil
	}

	var diff domain.Doc
	switch {
	case strings.HasPrefix(item.ObjectKey, answersPrefix):
		diff = domain.Doc{
			"acceptableCompensation": nil,
			"desiredCompensation":    nil,
			"workingHours":           nil,
			"availabilityToStart":    nil,
			"domains":                nil,
			"bfqAnswers":             nil,
			"bfqKeywords":            nil,
		}
	case strings.HasPrefix(item.ObjectKey, jobRoleAnswersPrefix):
		diff = domain.Doc{
			"careerGoals":               nil,
			"currentCompensationPeriod": nil,
			"currentCompensation":       nil,
		}
	default:
		log.Warn("unknown answers key, skipping removal", zap.String("object_key", item.ObjectKey))
		return nil
	}

	log.Info("removing questionnaire answers", zap.String("candidate_id", candidateID), zap.String("object_key", item.ObjectKey))
	return h.apply(ctx, candidateID, diff)
}

// apply pushes a partial document into both indices: metadata by merge
// upsert, vector by merging into the candidate's existing chunks.
func (h *Handler) apply(ctx context.Context, candidateID string, doc domain.Doc) error {
	h.meta.UpdateDocument(ctx, h.alias, candidateID, doc)

	merged := doc.Merge(domain.Doc{domain.FieldCandidateID: candidateID})
	if _, err := h.vec.Index(ctx, h.alias, []domain.Doc{merged}, false); err != nil {
		return fmt.Errorf("merging answers into chunks for %s: %w", candidateID, err)
	}
	return nil
}

// parserFor picks the parser by answers prefix. For the standard
// questionnaire the schema loads fresh from storage; a missing or
// unparseable schema is an infrastructure problem worth a redelivery.
func (h *Handler) parserFor(ctx context.Context, objectKey string) (Parser, error) {
	switch {
	case strings.HasPrefix(objectKey, answersPrefix):
		obj, err := h.store.Download(ctx, h.schemaKey)
		if err != nil {
			return nil, fmt.Errorf("downloading questions schema: %w", err)
		}
		if obj == nil {
			return nil, fmt.Errorf("%w: %s missing", domain.ErrSchemaNotLoaded, h.schemaKey)
		}
		schema, err := ParseSchema(obj.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSchemaNotLoaded, err)
		}
		return NewAnswersParser(schema), nil
	case strings.HasPrefix(objectKey, jobRoleAnswersPrefix):
		return PassthroughParser{}, nil
	}
	return nil, nil
}

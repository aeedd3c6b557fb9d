// Package indexer runs the bulk extractions: warehouse query results
// flow into both search indices page by page, and newly created
// candidates fan out to the enrichment queues.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/metrics"
	"github.com/vibhu2208/candidate-indexer/internal/queue"
	"github.com/vibhu2208/candidate-indexer/internal/search"
	"github.com/vibhu2208/candidate-indexer/internal/vector"
	"github.com/vibhu2208/candidate-indexer/internal/warehouse"
)

// Extraction describes one bulk extraction: its query, its row shape
// and where its resume cursor persists.
type Extraction struct {
	Name       string
	CursorPath string
	query      string
	transform  warehouse.RowTransform
}

// Candidates is the metadata extraction: one row per candidate with
// country, activity, compensation, job titles, badges and availability.
func Candidates(cursorDir string) Extraction {
	return Extraction{
		Name:       "candidates",
		CursorPath: filepath.Join(cursorDir, "candidates.cursor.json"),
		query:      candidatesQuery,
		transform:  CandidateRow,
	}
}

// Profiles is the narrative extraction: the free-text profile each
// candidate wrote, joined into a single resumeProfile field.
func Profiles(cursorDir string) Extraction {
	return Extraction{
		Name:       "profiles",
		CursorPath: filepath.Join(cursorDir, "profiles.cursor.json"),
		query:      profilesQuery,
		transform:  ProfileRow,
	}
}

// metadataIndex is the slice of the metadata index client the indexer
// needs.
type metadataIndex interface {
	EnsureAlias(ctx context.Context, alias string) error
	Upsert(ctx context.Context, alias string, docs []domain.Doc) (*search.Result, error)
}

// vectorIndex merges extracted metadata into existing chunk documents.
type vectorIndex interface {
	EnsureAlias(ctx context.Context, alias string) error
	Index(ctx context.Context, alias string, docs []domain.Doc, updateVector bool) (*vector.Result, error)
}

// publisher fans created candidate ids out to the enrichment queues.
type publisher interface {
	SendBatch(ctx context.Context, queueName string, msgs []queue.Outbound, delay time.Duration) error
}

// Options carries the indexer knobs taken from configuration.
type Options struct {
	Alias       string
	ResumeQueue string
	BfqQueue    string
	// Delay postpones enrichment so the metadata upsert settles first.
	Delay time.Duration
	// DateDiff is how many days back the incremental window reaches.
	// Negative disables the window and DefaultStartDate applies.
	DateDiff         int
	DefaultStartDate string
}

// Indexer drives one extraction through the paginator into the indices.
type Indexer struct {
	paginator *warehouse.Paginator
	meta      metadataIndex
	vec       vectorIndex
	pub       publisher
	opts      Options
}

// New wires an indexer.
func New(paginator *warehouse.Paginator, meta metadataIndex, vec vectorIndex, pub publisher, opts Options) *Indexer {
	return &Indexer{
		paginator: paginator,
		meta:      meta,
		vec:       vec,
		pub:       pub,
		opts:      opts,
	}
}

// Run advances ext by one invocation. A fresh run submits the query; a
// resumed run picks up at the persisted cursor. Run returns done=false
// when it paused before the context deadline, leaving the cursor on
// disk for the next invocation.
func (ix *Indexer) Run(ctx context.Context, ext Extraction) (bool, error) {
	log := logger.FromContext(ctx).With(zap.String("extraction", ext.Name))
	ctx = logger.ContextWithLogger(ctx, log)

	if err := ix.meta.EnsureAlias(ctx, ix.opts.Alias); err != nil {
		return false, fmt.Errorf("preparing metadata index: %w", err)
	}
	if err := ix.vec.EnsureAlias(ctx, ix.opts.Alias); err != nil {
		return false, fmt.Errorf("preparing vector index: %w", err)
	}

	cur, err := warehouse.LoadCursor(ext.CursorPath)
	if err != nil {
		return false, err
	}
	if cur.StartDate == "" {
		cur.StartDate = ix.startDate()
	}
	log.Info("starting extraction",
		zap.String("start_date", cur.StartDate),
		zap.Bool("resumed", cur.Started()))

	fetchedBefore := cur.Fetched
	began := time.Now()
	done, err := ix.paginator.Step(ctx, cur, withArgs(cur.StartDate, ext.query), ext.transform, func(ctx context.Context, docs []domain.Doc) error {
		return ix.indexPage(ctx, cur, docs)
	})
	metrics.ExtractionStepDuration.WithLabelValues(ext.Name).Observe(time.Since(began).Seconds())
	metrics.WarehouseRowsFetched.WithLabelValues(ext.Name).Add(float64(cur.Fetched - fetchedBefore))
	if err != nil {
		return false, err
	}

	if !done {
		if err := warehouse.SaveCursor(ext.CursorPath, cur); err != nil {
			return false, err
		}
		log.Info("extraction paused",
			zap.Int("fetched", cur.Fetched),
			zap.Int("indexed", cur.Indexed))
		return false, nil
	}

	if err := warehouse.ClearCursor(ext.CursorPath); err != nil {
		return false, err
	}
	log.Info("extraction complete",
		zap.Int("fetched", cur.Fetched),
		zap.Int("indexed", cur.Indexed))
	return true, nil
}

// indexPage writes one page into both indices and fans out the ids the
// metadata index reports as newly created. An error aborts the run
// before the cursor advances past the page.
func (ix *Indexer) indexPage(ctx context.Context, cur *warehouse.Cursor, docs []domain.Doc) error {
	res, err := ix.meta.Upsert(ctx, ix.opts.Alias, docs)
	if err != nil {
		return err
	}
	cur.Indexed += res.IndexedCount

	if _, err := ix.vec.Index(ctx, ix.opts.Alias, docs, false); err != nil {
		return err
	}

	if len(res.Created) > 0 {
		return ix.fanOut(ctx, res.Created)
	}
	return nil
}

// fanOut schedules enrichment for newly created candidates on both
// queues. Only created ids fan out: re-extraction of an existing
// candidate must not re-trigger resume and questionnaire processing.
func (ix *Indexer) fanOut(ctx context.Context, ids []string) error {
	msgs := make([]queue.Outbound, 0, len(ids))
	for _, id := range ids {
		body, err := json.Marshal(domain.IndexItemMessage{
			Operation:   domain.OpUpdate,
			CandidateID: id,
		})
		if err != nil {
			return fmt.Errorf("encoding fan-out message: %w", err)
		}
		msgs = append(msgs, queue.Outbound{
			Body:          string(body),
			MessageSource: domain.MessageSourceIndexer,
		})
	}

	if err := ix.pub.SendBatch(ctx, ix.opts.ResumeQueue, msgs, ix.opts.Delay); err != nil {
		return fmt.Errorf("scheduling resume enrichment: %w", err)
	}
	if err := ix.pub.SendBatch(ctx, ix.opts.BfqQueue, msgs, ix.opts.Delay); err != nil {
		return fmt.Errorf("scheduling questionnaire enrichment: %w", err)
	}
	return nil
}

// startDate computes the incremental window lower bound for a fresh
// extraction.
func (ix *Indexer) startDate() string {
	if ix.opts.DateDiff >= 0 {
		return time.Now().UTC().AddDate(0, 0, -ix.opts.DateDiff).Format("2006-01-02")
	}
	return ix.opts.DefaultStartDate
}

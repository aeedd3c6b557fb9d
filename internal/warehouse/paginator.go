package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/logger"
)

// EarlyExitThreshold is how much headroom must remain before the context
// deadline for the paginator to start another page. Below it the run
// stops cleanly so the cursor can be persisted and resumed.
const EarlyExitThreshold = 30 * time.Second

// RowTransform converts one positional result row into a document,
// given the column header captured from the first page.
type RowTransform func(header []string, row Row) (domain.Doc, error)

// PageHandler consumes the transformed documents of one result page.
// Returning an error aborts the run without advancing the cursor past
// the failed page.
type PageHandler func(ctx context.Context, docs []domain.Doc) error

// Paginator drives a warehouse query page by page, updating the cursor
// after every page so the run survives interruption.
type Paginator struct {
	engine       Engine
	pollInterval time.Duration
	earlyExit    time.Duration
}

// NewPaginator creates a Paginator polling query status every
// pollInterval.
func NewPaginator(engine Engine, pollInterval time.Duration) *Paginator {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Paginator{
		engine:       engine,
		pollInterval: pollInterval,
		earlyExit:    EarlyExitThreshold,
	}
}

// Step advances the extraction described by cur. On a fresh cursor it
// submits sql and waits for the query to succeed; it then fetches pages
// starting from cur.NextToken, transforms rows, and hands each page to
// handler. The cursor is mutated in place as pages complete.
//
// Step returns done=true when the last page has been consumed, and
// done=false with a nil error when it stopped early because the context
// deadline is closer than EarlyExitThreshold. In both cases cur holds
// everything a later call needs to continue.
func (p *Paginator) Step(ctx context.Context, cur *Cursor, sql string, transform RowTransform, handler PageHandler) (bool, error) {
	log := logger.FromContext(ctx)

	if !cur.Started() {
		id, err := p.engine.StartQuery(ctx, sql)
		if err != nil {
			return false, fmt.Errorf("starting warehouse query: %w", err)
		}
		st, err := p.waitForQuery(ctx, id)
		if err != nil {
			return false, err
		}
		if st.State != StateSucceeded {
			return false, fmt.Errorf("query %s ended in %s (%s): %w", id, st.State, st.Reason, domain.ErrQueryFailed)
		}
		cur.QueryID = id
		log.Info("warehouse query succeeded", zap.String("query_id", id))
	}

	for {
		page, err := p.engine.FetchResults(ctx, cur.QueryID, cur.NextToken, 0)
		if err != nil {
			return false, fmt.Errorf("fetching page for query %s: %w", cur.QueryID, err)
		}

		rows := page.Rows
		if cur.HeaderRow == nil && len(rows) > 0 {
			cur.HeaderRow = rows[0]
			rows = rows[1:]
		}

		docs := make([]domain.Doc, 0, len(rows))
		for _, row := range rows {
			doc, err := transform(cur.HeaderRow, row)
			if err != nil {
				log.Warn("skipping unparseable row",
					zap.String("query_id", cur.QueryID),
					zap.Error(err))
				continue
			}
			docs = append(docs, doc)
		}
		cur.Fetched += len(rows)

		if len(docs) > 0 {
			if err := handler(ctx, docs); err != nil {
				return false, fmt.Errorf("handling page for query %s: %w", cur.QueryID, err)
			}
		}

		cur.NextToken = page.NextToken
		if cur.NextToken == "" {
			return true, nil
		}

		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < p.earlyExit {
			log.Info("pausing extraction before deadline",
				zap.String("query_id", cur.QueryID),
				zap.Int("fetched", cur.Fetched))
			return false, nil
		}
	}
}

// waitForQuery polls the query state until it reaches a terminal state.
func (p *Paginator) waitForQuery(ctx context.Context, queryID string) (Status, error) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()

	for {
		st, err := p.engine.QueryStatus(ctx, queryID)
		if err != nil {
			return Status{}, fmt.Errorf("polling query %s: %w", queryID, err)
		}
		if st.State.Terminal() {
			return st, nil
		}

		timer.Reset(p.pollInterval)
		select {
		case <-ctx.Done():
			return Status{}, ctx.Err()
		case <-timer.C:
		}
	}
}

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vibhu2208/candidate-indexer/internal/bfq"
	"github.com/vibhu2208/candidate-indexer/internal/blob"
	"github.com/vibhu2208/candidate-indexer/internal/config"
	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/embedding"
	"github.com/vibhu2208/candidate-indexer/internal/event"
	"github.com/vibhu2208/candidate-indexer/internal/indexer"
	"github.com/vibhu2208/candidate-indexer/internal/queue"
	"github.com/vibhu2208/candidate-indexer/internal/resume"
	"github.com/vibhu2208/candidate-indexer/internal/textsplit"
)

// itemHandler adapts a per-item processor to the queue handler: one
// queue message can carry several storage records.
type itemHandler interface {
	Handle(ctx context.Context, item domain.IndexItemMessage) error
}

var initIndicesCmd = &cobra.Command{
	Use:   "init-indices",
	Short: "Create the search indices and write aliases if absent",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		ctx, stop := a.signalContext()
		defer stop()

		if err := a.meta.EnsureAlias(ctx, a.cfg.Search.Alias); err != nil {
			return err
		}
		return a.vec.EnsureAlias(ctx, a.cfg.Search.Alias)
	},
}

var extractCandidatesCmd = &cobra.Command{
	Use:   "extract-candidates",
	Short: "Run the bulk candidate metadata extraction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtraction(cmd, indexer.Candidates)
	},
}

var extractProfilesCmd = &cobra.Command{
	Use:   "extract-profiles",
	Short: "Run the bulk profile narrative extraction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtraction(cmd, indexer.Profiles)
	},
}

var consumeResumesCmd = &cobra.Command{
	Use:   "consume-resumes",
	Short: "Consume the resume enrichment queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsumer(cmd,
			func(cfg config.Config) string { return cfg.Queue.ResumeQueue },
			func(a *app, q *queue.Queue) (queue.Handler, func(), error) {
				store, err := blob.NewGCSStore(context.Background(), a.cfg.Storage.ResumeBucket, a.log)
				if err != nil {
					return nil, nil, err
				}

				summarizer := resume.NewSummarizer(resume.SummarizerConfig{
					APIKey:  a.cfg.OpenAI.APIKey,
					BaseURL: a.cfg.OpenAI.BaseURL,
					Model:   a.cfg.OpenAI.SummaryModel,
				})
				embedder := embedding.NewEmbedder(embedding.Config{
					APIKey:     a.cfg.OpenAI.APIKey,
					BaseURL:    a.cfg.OpenAI.BaseURL,
					Model:      a.cfg.OpenAI.EmbeddingModel,
					Dimensions: a.cfg.OpenAI.Dimensions,
				})
				splitter := textsplit.New(20000, 400)

				proc := resume.NewProcessor(store, a.meta, a.vec, summarizer, embedder, splitter, a.cfg.Search.Alias)
				cleanup := func() { _ = store.Close() }
				return itemQueueHandler(proc), cleanup, nil
			})
	},
}

var consumeBfqCmd = &cobra.Command{
	Use:   "consume-bfq",
	Short: "Consume the questionnaire enrichment queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsumer(cmd,
			func(cfg config.Config) string { return cfg.Queue.BfqQueue },
			func(a *app, q *queue.Queue) (queue.Handler, func(), error) {
				store, err := blob.NewGCSStore(context.Background(), a.cfg.Storage.BfqBucket, a.log)
				if err != nil {
					return nil, nil, err
				}

				h := bfq.NewHandler(store, a.meta, a.vec, a.cfg.Search.Alias, a.cfg.Storage.BfqSchemaKey)
				cleanup := func() { _ = store.Close() }
				return itemQueueHandler(h), cleanup, nil
			})
	},
}

// itemQueueHandler routes each record of a queue message through h.
func itemQueueHandler(h itemHandler) queue.Handler {
	return func(ctx context.Context, msg queue.Message) error {
		for _, item := range event.Parse(ctx, msg) {
			if err := h.Handle(ctx, item); err != nil {
				return err
			}
		}
		return nil
	}
}

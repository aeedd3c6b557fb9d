package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/config"
	"github.com/vibhu2208/candidate-indexer/internal/indexer"
	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/metrics"
	"github.com/vibhu2208/candidate-indexer/internal/queue"
	"github.com/vibhu2208/candidate-indexer/internal/search"
	"github.com/vibhu2208/candidate-indexer/internal/vector"
	"github.com/vibhu2208/candidate-indexer/internal/warehouse"
)

// app holds the clients every subcommand needs.
type app struct {
	cfg  config.Config
	log  *zap.Logger
	meta *search.Client
	vec  *vector.Client
}

// setup loads configuration and builds the shared clients.
func setup(cmd *cobra.Command) (*app, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(env, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	metrics.Register()

	meta, err := search.NewClient(cfg.Search.Endpoint, cfg.Search.Username, cfg.Search.Password)
	if err != nil {
		return nil, err
	}
	vec, err := vector.NewClient(cfg.Search.VectorEndpoint, cfg.Search.Username, cfg.Search.Password)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, meta: meta, vec: vec}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, with the
// application logger attached.
func (a *app) signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return logger.ContextWithLogger(ctx, a.log), stop
}

// runExtraction runs one bulk extraction within the configured time
// budget. When the budget runs out mid-query the cursor persists and
// the next invocation resumes.
func runExtraction(cmd *cobra.Command, build func(cursorDir string) indexer.Extraction) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	ctx, stop := a.signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Extraction.BudgetSec)*time.Second)
	defer cancel()

	q, err := queue.New(queue.Config{
		Addrs:    a.cfg.Queue.Addrs,
		Password: a.cfg.Queue.Password,
	})
	if err != nil {
		return err
	}
	defer q.Close()

	engine := warehouse.NewHTTPEngine(
		a.cfg.Warehouse.Endpoint,
		a.cfg.Warehouse.Database,
		a.cfg.Warehouse.OutputLocation,
	)
	paginator := warehouse.NewPaginator(engine, time.Duration(a.cfg.Warehouse.PollIntervalSec)*time.Second)

	ix := indexer.New(paginator, a.meta, a.vec, q, indexer.Options{
		Alias:            a.cfg.Search.Alias,
		ResumeQueue:      a.cfg.Queue.ResumeQueue,
		BfqQueue:         a.cfg.Queue.BfqQueue,
		Delay:            time.Duration(a.cfg.Queue.DeliveryDelaySec) * time.Second,
		DateDiff:         a.cfg.Extraction.DateDiff,
		DefaultStartDate: a.cfg.Extraction.DefaultStartDate,
	})

	done, err := ix.Run(ctx, build(a.cfg.Extraction.CursorDir))
	if err != nil {
		return err
	}
	if !done {
		a.log.Info("extraction paused, run the command again to continue")
	}
	return nil
}

// runConsumer serves /metrics and polls queueName until interrupted.
func runConsumer(cmd *cobra.Command, queueName func(config.Config) string, handler func(*app, *queue.Queue) (queue.Handler, func(), error)) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	ctx, stop := a.signalContext()
	defer stop()

	go func() {
		if err := metrics.Serve(ctx, a.cfg.Metrics.Port, a.log); err != nil {
			a.log.Error("metrics listener failed", zap.Error(err))
		}
	}()

	q, err := queue.New(queue.Config{
		Addrs:    a.cfg.Queue.Addrs,
		Password: a.cfg.Queue.Password,
	})
	if err != nil {
		return err
	}
	defer q.Close()

	h, cleanup, err := handler(a, q)
	if err != nil {
		return err
	}
	defer cleanup()

	return q.Run(ctx, queueName(a.cfg), queue.RunOptions{
		PollInterval: time.Duration(a.cfg.Queue.PollIntervalSec) * time.Second,
		MaxAttempts:  a.cfg.Queue.MaxAttempts,
	}, h)
}

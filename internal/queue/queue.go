// Package queue implements the fan-out queues between extraction and
// enrichment on Redis sorted sets.
//
// A queue is one sorted set scored by delivery time. Publishing with a
// delay schedules the member in the future; consumers claim due members
// with a ZREM so a message is delivered to exactly one consumer per
// attempt. Delivery is at-least-once: a failed handler re-schedules the
// message with its attempt count until it falls into the dead-letter
// list.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/metrics"
)

// SendBatchSize is how many members go into one ZADD.
const SendBatchSize = 10

// deadLetterSuffix names the list holding messages past MaxAttempts.
const deadLetterSuffix = ":dead"

// Config holds connection parameters for the queue store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Message is the stored queue envelope.
type Message struct {
	ID            string `json:"id"`
	Body          string `json:"body"`
	MessageSource string `json:"messageSource,omitempty"`
	Attempts      int    `json:"attempts"`
}

// Outbound is a message to publish.
type Outbound struct {
	Body          string
	MessageSource string
}

// Queue talks to the queue store via rueidis.
type Queue struct {
	client rueidis.Client
}

// New connects to the queue store.
func New(cfg Config) (*Queue, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Queue{client: client}, nil
}

// Close shuts down the client.
func (q *Queue) Close() {
	q.client.Close()
}

// SendBatch publishes msgs to queueName, due after delay. Members are
// grouped into ZADDs of SendBatchSize.
func (q *Queue) SendBatch(ctx context.Context, queueName string, msgs []Outbound, delay time.Duration) error {
	if len(msgs) == 0 {
		return nil
	}
	dueAt := float64(time.Now().Add(delay).UnixMilli())

	for start := 0; start < len(msgs); start += SendBatchSize {
		end := start + SendBatchSize
		if end > len(msgs) {
			end = len(msgs)
		}

		zadd := q.client.B().Zadd().Key(queueName).ScoreMember()
		for _, out := range msgs[start:end] {
			member, err := json.Marshal(Message{
				ID:            uuid.NewString(),
				Body:          out.Body,
				MessageSource: out.MessageSource,
			})
			if err != nil {
				return fmt.Errorf("encoding message: %w", err)
			}
			zadd = zadd.ScoreMember(dueAt, string(member))
		}
		if err := q.client.Do(ctx, zadd.Build()).Error(); err != nil {
			return fmt.Errorf("publishing to %s: %w", queueName, err)
		}
		metrics.QueueMessages.WithLabelValues(queueName, "sent").Add(float64(end - start))
	}
	return nil
}

// Receive claims up to max due messages from queueName. A message is
// claimed by removing it from the set; members another consumer removed
// first are skipped.
func (q *Queue) Receive(ctx context.Context, queueName string, max int) ([]Message, error) {
	log := logger.FromContext(ctx)
	now := fmt.Sprintf("%d", time.Now().UnixMilli())

	due, err := q.client.Do(ctx, q.client.B().Zrangebyscore().
		Key(queueName).Min("-inf").Max(now).
		Limit(0, int64(max)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("reading queue %s: %w", queueName, err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	msgs := make([]Message, 0, len(due))
	for _, member := range due {
		removed, err := q.client.Do(ctx, q.client.B().Zrem().
			Key(queueName).Member(member).Build()).AsInt64()
		if err != nil {
			return nil, fmt.Errorf("claiming message on %s: %w", queueName, err)
		}
		if removed == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(member), &msg); err != nil {
			log.Warn("dropping undecodable queue member",
				zap.String("queue", queueName),
				zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
		metrics.QueueMessages.WithLabelValues(queueName, "received").Inc()
	}
	return msgs, nil
}

// Retry re-schedules msg after delay with its attempt count bumped.
// Once the count exceeds maxAttempts the message moves to the
// dead-letter list instead.
func (q *Queue) Retry(ctx context.Context, queueName string, msg Message, delay time.Duration, maxAttempts int) error {
	log := logger.FromContext(ctx)
	msg.Attempts++

	member, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	if msg.Attempts >= maxAttempts {
		if err := q.client.Do(ctx, q.client.B().Rpush().
			Key(queueName+deadLetterSuffix).Element(string(member)).Build()).Error(); err != nil {
			return fmt.Errorf("dead-lettering on %s: %w", queueName, err)
		}
		metrics.QueueMessages.WithLabelValues(queueName, "dead").Inc()
		log.Warn("message moved to dead letter",
			zap.String("queue", queueName),
			zap.String("message_id", msg.ID),
			zap.Int("attempts", msg.Attempts))
		return nil
	}

	dueAt := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.Do(ctx, q.client.B().Zadd().
		Key(queueName).ScoreMember().ScoreMember(dueAt, string(member)).Build()).Error(); err != nil {
		return fmt.Errorf("re-scheduling on %s: %w", queueName, err)
	}
	metrics.QueueMessages.WithLabelValues(queueName, "retried").Inc()
	return nil
}

// Handler processes one claimed message.
type Handler func(ctx context.Context, msg Message) error

// RunOptions tunes a consumer loop.
type RunOptions struct {
	PollInterval time.Duration
	RetryDelay   time.Duration
	MaxAttempts  int
}

func (o *RunOptions) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
}

// Run polls queueName until ctx is cancelled, handing each claimed
// message to h. A handler error re-schedules only that message; the
// rest of the batch is unaffected.
func (q *Queue) Run(ctx context.Context, queueName string, opts RunOptions, h Handler) error {
	opts.applyDefaults()
	log := logger.FromContext(ctx)

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	log.Info("consumer started",
		zap.String("queue", queueName),
		zap.Duration("poll_interval", opts.PollInterval))

	for {
		if err := q.runOnce(ctx, queueName, opts, h); err != nil {
			log.Error("consumer poll failed", zap.String("queue", queueName), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			log.Info("consumer stopped", zap.String("queue", queueName))
			return nil
		case <-ticker.C:
		}
	}
}

func (q *Queue) runOnce(ctx context.Context, queueName string, opts RunOptions, h Handler) error {
	log := logger.FromContext(ctx)

	msgs, err := q.Receive(ctx, queueName, SendBatchSize)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if err := h(ctx, msg); err != nil {
			metrics.MessagesProcessed.WithLabelValues(queueName, "error").Inc()
			log.Warn("message handling failed",
				zap.String("queue", queueName),
				zap.String("message_id", msg.ID),
				zap.Int("attempts", msg.Attempts),
				zap.Error(err))
			if rErr := q.Retry(ctx, queueName, msg, opts.RetryDelay, opts.MaxAttempts); rErr != nil {
				log.Error("re-scheduling failed",
					zap.String("queue", queueName),
					zap.String("message_id", msg.ID),
					zap.Error(rErr))
			}
			continue
		}
		metrics.MessagesProcessed.WithLabelValues(queueName, "ok").Inc()
	}
	return nil
}

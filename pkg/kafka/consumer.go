package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerAttempts bounds retries before a message is treated as poison,
// committed and skipped.
const maxHandlerAttempts = 3

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// Reader is the part of *kafka.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig configures a group consumer for one or more topics.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
}

// Consumer feeds messages from a Reader to a Handler with bounded retries.
type Consumer struct {
	reader    Reader
	group     string
	handler   Handler
	logger    *slog.Logger
	retryWait time.Duration
	closeOnce sync.Once
	closeErr  error
}

// NewConsumer builds a consumer backed by a kafka-go group reader.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, cfg.GroupID, handler, logger)
}

// NewConsumerWithReader builds a consumer around an existing Reader.
func NewConsumerWithReader(r Reader, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:    r,
		group:     group,
		handler:   handler,
		logger:    logger,
		retryWait: 100 * time.Millisecond,
	}
}

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "consumer started", slog.String("group", c.group))
	defer func() { _ = c.Close() }()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping", slog.String("group", c.group))
				return nil
			}
			c.logger.ErrorContext(ctx, "fetch message failed", slog.String("error", err.Error()))
			continue
		}
		if !c.process(ctx, msg) {
			return nil
		}
	}
}

// process handles one message and commits it. It returns false when ctx was
// canceled mid-retry, leaving the message uncommitted for redelivery.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	labels := []string{msg.Topic, c.group}
	consumerReceived.WithLabelValues(labels...).Inc()

	attrs := []any{
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	}

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		consumerFailed.WithLabelValues(labels...).Inc()
		c.logger.ErrorContext(ctx, "dropping undecodable message", append(attrs, slog.String("error", err.Error()))...)
		c.commit(ctx, msg)
		return true
	}
	attrs = append(attrs,
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxHandlerAttempts; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			break
		}
		c.logger.WarnContext(ctx, "handler failed",
			append(attrs, slog.Int("attempt", attempt), slog.String("error", lastErr.Error()))...)
		if attempt == maxHandlerAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * c.retryWait):
		}
	}
	consumerDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		consumerFailed.WithLabelValues(labels...).Inc()
		c.logger.ErrorContext(ctx, "skipping poison message",
			append(attrs, slog.String("error", lastErr.Error()))...)
	} else {
		consumerProcessed.WithLabelValues(labels...).Inc()
	}
	c.commit(ctx, msg)
	return true
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "commit message failed",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the reader once.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.reader.Close() })
	return c.closeErr
}

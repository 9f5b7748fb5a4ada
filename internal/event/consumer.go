package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"
	pkgkafka "github.com/Sumit-Saurabh98/indexsearch/pkg/kafka"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/validator"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
	"github.com/Sumit-Saurabh98/indexsearch/internal/service"
)

// Topics for product domain events consumed by the search service.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// ProductDeletedData represents the payload from a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// Indexer is the part of the search service the consumer drives.
type Indexer interface {
	IndexProduct(ctx context.Context, input *service.IndexProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Consumer handles Kafka events related to product changes for search indexing.
type Consumer struct {
	indexer Indexer
	logger  *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(indexer Indexer, logger *slog.Logger) *Consumer {
	return &Consumer{
		indexer: indexer,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on its type. Events that can never
// succeed (bad payloads, invalid products, unknown products) are logged and
// acknowledged; index failures are returned so the message is retried.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	var err error
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		err = c.handleUpsert(ctx, event)
	case TopicProductDeleted:
		err = c.handleDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err != nil && permanent(err) {
		c.logger.WarnContext(ctx, "dropping unprocessable product event",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return err
}

func (c *Consumer) handleUpsert(ctx context.Context, event *pkgkafka.Event) error {
	var input service.IndexProductInput
	if err := event.UnmarshalData(&input); err != nil {
		return &decodeError{err: err}
	}
	if input.ID == "" {
		input.ID = event.AggregateID
	}

	product, err := c.indexer.IndexProduct(ctx, &input)
	if err != nil {
		return fmt.Errorf("index product from %s: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed product from event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", product.ID),
	)
	return nil
}

func (c *Consumer) handleDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return &decodeError{err: err}
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}

	if err := c.indexer.DeleteProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from deleted event",
		slog.String("product_id", data.ID),
	)
	return nil
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode event data: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func permanent(err error) bool {
	var (
		de *decodeError
		ve *validator.ValidationError
	)
	return errors.As(err, &de) ||
		errors.As(err, &ve) ||
		errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, apperrors.ErrNotFound)
}

package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox is the slice of the inbox repository the consumer needs.
type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Consumer reads one topic and feeds deduplicated messages to a handler.
// The inbox claim is taken before the handler runs and released again when
// the handler errors, so the claim only outlives deliveries the handler
// actually processed (or the metrics store's own event-id guard absorbed).
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inboxRepo Inbox, cfg Config, handler Handler) *Consumer {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inboxRepo,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		if c.handle(ctx, msg) {
			c.commit(ctx, msg)
		}
	}
}

// handle processes one delivery and reports whether its offset may be
// committed. A delivery whose handler failed must not commit: the claim is
// released and the broker redelivers.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	ctx = kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otel.Tracer("kafka").Start(ctx, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)

	ok, err := c.inbox.Record(ctx, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err)
		span.RecordError(err)
		return false
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return true
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		// Without this the redelivery would look like a duplicate and
		// commit without ever reaching the handler.
		if delErr := c.inbox.Delete(ctx, meta.EventID); delErr != nil {
			c.logger.Error("inbox release failed", "err", delErr, "event_id", meta.EventID)
		}
		return false
	}
	return true
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.logger.Error("kafka commit failed", "err", err)
	}
}

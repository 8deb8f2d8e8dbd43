package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/orderflow/libs/kafkax"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/broadcast"
	"github.com/segmentio/kafka-go"
)

// Notifier forwards view-change notifications to Kafka for consumers
// outside this process. Delivery is best effort; the outbox already
// guarantees the projection itself.
type Notifier struct {
	logger  *slog.Logger
	brokers []string
	topic   string
	bus     interface {
		Subscribe() *broadcast.Subscription
	}
}

type Config struct {
	Brokers string
	Topic   string
}

func NewNotifier(bus interface{ Subscribe() *broadcast.Subscription }, logger *slog.Logger, cfg Config) *Notifier {
	if cfg.Topic == "" {
		cfg.Topic = "registry.product.events.v1"
	}
	return &Notifier{
		logger:  logger,
		brokers: kafkax.SplitBrokers(cfg.Brokers),
		topic:   cfg.Topic,
		bus:     bus,
	}
}

func (n *Notifier) Run(ctx context.Context) {
	if len(n.brokers) == 0 {
		n.logger.Warn("kafka notifier disabled (no kafka brokers configured)")
		return
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  n.brokers,
		Topic:    n.topic,
		Balancer: &kafka.Hash{},
	})
	defer writer.Close()

	sub := n.bus.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(notif)
			if err != nil {
				n.logger.Error("notification encode failed", "err", err)
				continue
			}
			msg := kafka.Message{
				Key:   []byte(notif.ProductID),
				Value: payload,
				Headers: []kafka.Header{
					{Key: "event_id", Value: []byte(fmt.Sprintf("%s:%d", notif.ProductID, notif.Sequence))},
					{Key: "event_type", Value: []byte(notif.Type)},
				},
			}
			msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
			if err := writer.WriteMessages(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return
				}
				n.logger.Error("kafka notify failed", "product_id", notif.ProductID, "err", err)
			}
		}
	}
}

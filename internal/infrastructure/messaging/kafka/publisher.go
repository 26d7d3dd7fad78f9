// Package kafka forwards relayed outbox messages to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sigfarma/internal/domain/events"
)

var tracer = otel.Tracer("sigfarma/kafka")

// Producer is the part of kafka.Writer the handler needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds producer configuration.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// NewWriter creates a synchronous writer that waits for all in-sync replicas.
func NewWriter(cfg Config) *kafka.Writer {
	timeout := cfg.BatchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}
}

var _ events.Handler = (*Handler)(nil)

// Handler publishes outbox messages keyed by aggregate id, so all events of
// one document land on the same partition in order.
type Handler struct {
	producer Producer
}

// NewHandler creates a new Kafka handler.
func NewHandler(producer Producer) *Handler {
	return &Handler{producer: producer}
}

// Handle implements events.Handler.
func (h *Handler) Handle(ctx context.Context, msg *events.Message) error {
	ctx, span := tracer.Start(ctx, "outbox.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("event.type", msg.EventType),
			attribute.String("event.id", msg.ID.String()),
		))
	defer span.End()

	km := ToKafkaMessage(msg)
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &km})

	if err := h.producer.WriteMessages(ctx, km); err != nil {
		span.RecordError(err)
		return fmt.Errorf("write %s: %w", msg.EventType, err)
	}
	return nil
}

// Close closes the underlying producer.
func (h *Handler) Close() error {
	return h.producer.Close()
}

// ToKafkaMessage maps an outbox message to a Kafka record.
func ToKafkaMessage(msg *events.Message) kafka.Message {
	return kafka.Message{
		Key:   []byte(msg.AggregateID.String()),
		Value: msg.Payload,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(msg.ID.String())},
			{Key: "event_type", Value: []byte(msg.EventType)},
			{Key: "aggregate_type", Value: []byte(msg.AggregateType)},
		},
	}
}

// headerCarrier adapts Kafka headers for trace context propagation.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

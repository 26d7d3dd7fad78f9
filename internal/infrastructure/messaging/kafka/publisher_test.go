package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/core/id"
	"sigfarma/internal/domain/events"
)

type fakeProducer struct {
	written []kafka.Message
	err     error
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.written = append(p.written, msgs...)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func TestHandlerWritesKeyedMessage(t *testing.T) {
	prod := &fakeProducer{}
	h := NewHandler(prod)

	msg := &events.Message{
		ID:            id.New(),
		AggregateType: "sale",
		AggregateID:   id.New(),
		EventType:     events.SaleCreated,
		Payload:       []byte(`{"number":"SL-2026-00001"}`),
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, prod.written, 1)
	km := prod.written[0]
	assert.Equal(t, msg.AggregateID.String(), string(km.Key))
	assert.Equal(t, msg.Payload, km.Value)
	assert.Equal(t, events.SaleCreated, headerCarrier{msg: &km}.Get("event_type"))
	assert.Equal(t, msg.ID.String(), headerCarrier{msg: &km}.Get("event_id"))
}

func TestHandlerReportsFailure(t *testing.T) {
	h := NewHandler(&fakeProducer{err: errors.New("broker down")})

	err := h.Handle(context.Background(), &events.Message{ID: id.New(), EventType: events.ReturnCreated})
	assert.ErrorContains(t, err, "broker down")
}

func TestHeaderCarrierSetReplaces(t *testing.T) {
	km := kafka.Message{}
	c := headerCarrier{msg: &km}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")

	assert.Equal(t, "b", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}

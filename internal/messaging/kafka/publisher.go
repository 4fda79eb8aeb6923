package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/events"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/telemetry"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type ClickPublisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
}

func NewClickPublisher(brokers []string, topic string, writeTimeout time.Duration) *ClickPublisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newClickPublisher(w, topic, writeTimeout)
}

func newClickPublisher(w messageWriter, topic string, writeTimeout time.Duration) *ClickPublisher {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &ClickPublisher{writer: w, topic: topic, writeTimeout: writeTimeout}
}

// PublishClick writes one event keyed by short code so a link's clicks stay
// on one partition. Trace context travels in the message headers.
func (p *ClickPublisher) PublishClick(ctx context.Context, ev events.ClickRecorded) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartKindSpan(ctx, "kafka.publish.click_recorded", trace.SpanKindProducer,
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("messaging.message.id", ev.EventID),
		attribute.String("messaging.kafka.message_key", ev.ShortCode),
	)
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	occurredAt, _ := ev.OccurredTime(time.Now())

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafkago.Message{
		Key:     []byte(ev.ShortCode),
		Value:   value,
		Time:    occurredAt,
		Headers: CarrierToHeaders(carrier),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		return err
	}
	return nil
}

func (p *ClickPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		logger.Warn("failed to close kafka writer", zap.Error(err))
		return err
	}
	return nil
}

func CarrierToHeaders(carrier propagation.MapCarrier) []kafkago.Header {
	headers := make([]kafkago.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafkago.Header{Key: key, Value: []byte(value)})
	}
	return headers
}

// ContextFromHeaders restores the producer's trace context on the consumer side.
func ContextFromHeaders(parent context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header.Key))
		if key == "" {
			continue
		}
		carrier.Set(key, string(header.Value))
	}
	return otel.GetTextMapPropagator().Extract(parent, carrier)
}

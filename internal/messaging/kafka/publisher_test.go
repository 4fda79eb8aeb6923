package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/events"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishClick(t *testing.T) {
	w := &fakeWriter{}
	p := newClickPublisher(w, "clicks.recorded", time.Second)

	ev := events.ClickRecorded{
		EventID:    "e1",
		ShortCode:  "abc",
		OccurredAt: "2025-01-02T03:04:05Z",
	}
	if err := p.PublishClick(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "abc" {
		t.Errorf("got key %q, want abc", msg.Key)
	}
	if !msg.Time.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected message time %v", msg.Time)
	}

	var decoded events.ClickRecorded
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.EventID != "e1" {
		t.Errorf("got event id %q", decoded.EventID)
	}
}

func TestPublishClick_WriterError(t *testing.T) {
	p := newClickPublisher(&fakeWriter{err: errors.New("no brokers")}, "t", 0)
	if err := p.PublishClick(context.Background(), events.ClickRecorded{EventID: "e"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestHeadersRoundTrip(t *testing.T) {
	carrier := propagation.MapCarrier{"traceparent": "00-abc-def-01", "empty": ""}
	headers := CarrierToHeaders(carrier)
	if len(headers) != 1 || headers[0].Key != "traceparent" {
		t.Fatalf("unexpected headers: %+v", headers)
	}
}

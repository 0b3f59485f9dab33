package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip", prometheus.NewRegistry())

	if err := p.Publish(context.Background(), "views", []byte("k"), map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if err := p.PublishMessage(context.Background(), "logs", "plain"); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("messages %d", len(w.msgs))
	}
	if string(w.msgs[0].Value) != `{"a":1}` || w.msgs[0].Topic != "views" || string(w.msgs[0].Key) != "k" {
		t.Fatalf("unexpected %+v", w.msgs[0])
	}
	if string(w.msgs[1].Value) != "plain" || w.msgs[1].Key != nil {
		t.Fatalf("unexpected %+v", w.msgs[1])
	}
}

func TestPublishCountsFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "gzip", prometheus.NewRegistry())

	if err := p.Publish(context.Background(), "views", nil, "x"); err == nil {
		t.Fatal("expected error")
	}
	if got := testutil.ToFloat64(p.metrics.messages.WithLabelValues("views", "gzip", "error")); got != 1 {
		t.Fatalf("error count %v", got)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(WithRegisterer(nil)); err == nil {
		t.Fatal("expected error without brokers")
	}
}

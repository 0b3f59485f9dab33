package repository

import (
	"context"

	"SignalDeck/internal/domain/models"
)

// Publisher sends one keyed message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaViewPublisher emits every refreshed view, without the record list,
// for downstream consumers.
type KafkaViewPublisher struct {
	pub   Publisher
	topic string
}

func NewKafkaViewPublisher(pub Publisher, topic string) *KafkaViewPublisher {
	return &KafkaViewPublisher{pub: pub, topic: topic}
}

func (p *KafkaViewPublisher) Name() string { return "kafka" }

// Deliver keys every message alike so views stay ordered on one partition.
func (p *KafkaViewPublisher) Deliver(ctx context.Context, v *models.DashboardView) error {
	return p.pub.Publish(ctx, p.topic, []byte("dashboard"), v.WithoutRecords())
}

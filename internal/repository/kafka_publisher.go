package repository

import (
	"context"

	domrepo "github.com/romkarus000/analytics-product/internal/domain/repository"
	pkgkafka "github.com/romkarus000/analytics-product/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. It carries the aggregated
// error logs of the service.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	key      []byte
}

// NewKafkaPublisher creates Kafka publisher; key partitions the messages.
func NewKafkaPublisher(producer *pkgkafka.Producer, key string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, key: []byte(key)}
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, p.key, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

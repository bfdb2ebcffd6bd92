package repository

import (
	"context"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/domain/repository"
	pkgkafka "FerryCast/pkg/kafka"
)

// BatchPublisher is the part of pkg/kafka.Producer the sink depends on.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaForecastPublisher implements ForecastSink for Kafka. Events are keyed
// by target so each model's stream keeps its order on one partition.
type KafkaForecastPublisher struct {
	producer BatchPublisher
	topic    string
}

// NewKafkaForecastPublisher creates Kafka publisher.
func NewKafkaForecastPublisher(producer BatchPublisher, topic string) repository.ForecastSink {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) Record(ctx context.Context, events []models.ForecastEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, ev := range events {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(ev.Target),
			Value: ev,
			Headers: map[string]string{
				"mode":              ev.Mode,
				"artifacts_version": ev.Version,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaForecastPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

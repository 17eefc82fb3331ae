package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/phenrril/storeadmin/internal/domain"
)

// messageWriter es la parte de *kafka.Writer que usa el publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

func NewKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) PublishIngestion(ctx context.Context, ev domain.IngestionEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.BatchID.String()),
		Value: b,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("store.ingestion.completed")},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Noop descarta los eventos. Se usa cuando no hay brokers configurados.
type Noop struct{}

func (Noop) PublishIngestion(context.Context, domain.IngestionEvent) error { return nil }

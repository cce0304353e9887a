package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"tenancy-control-plane/backend/internal/invitation/domain"
)

// writeTimeout bounds a single notification write so slow Kafka does not block callers indefinitely.
const writeTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer used by KafkaNotifier.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes invitation notifications to a Kafka topic using segmentio/kafka-go.
// Messages are keyed by invitation key so retries of one invitation land on one partition.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

// NewKafkaNotifier creates a notifier that writes to topic. brokers and topic must be non-empty.
// Call Close when shutting down.
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("notify: kafka brokers and topic are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: writer, topic: topic}, nil
}

// Send serializes the invitation as JSON and writes it to the topic.
func (n *KafkaNotifier) Send(ctx context.Context, w *domain.WithMembership) error {
	if n == nil || n.writer == nil || w == nil || w.Invitation == nil {
		return nil
	}
	payload, err := json.Marshal(NewMessage(w))
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return n.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(w.Invitation.Key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(EventInvitationCreated)},
		},
	})
}

// Close closes the Kafka writer. Safe to call on a nil notifier.
func (n *KafkaNotifier) Close() error {
	if n == nil || n.writer == nil {
		return nil
	}
	return n.writer.Close()
}

package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type message struct {
	User    string `json:"user"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// KafkaNotifier implements Notifier over a Kafka topic consumed by the
// connection gateway that holds the client sockets.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier writing to the given topic. Returns nil
// when brokers or topic are unset, which callers treat as notifications off.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Notify writes the event keyed by user. A short timeout keeps slow Kafka
// from blocking the request path; failures are logged and dropped.
func (n *KafkaNotifier) Notify(ctx context.Context, userKey, event string, payload any) {
	if n == nil || n.writer == nil {
		return
	}
	value, err := json.Marshal(message{User: userKey, Event: event, Payload: payload})
	if err != nil {
		log.Printf("notify: marshal %s for %s: %v", event, userKey, err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(userKey),
		Value: value,
	}); err != nil {
		log.Printf("notify: kafka write %s for %s: %v", event, userKey, err)
	}
}

// Close closes the Kafka writer. Safe to call multiple times.
func (n *KafkaNotifier) Close() error {
	if n == nil || n.writer == nil {
		return nil
	}
	return n.writer.Close()
}

package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"

	"firewatch/internal/core/fire"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/services/notify/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Kafka hands requests to an external delivery service through a topic.
// A written message counts as one device sent
type Kafka struct {
	w   messageWriter
	now func() time.Time
}

// NewKafka returns a producer for topic
func NewKafka(brokers []string, topic string) *Kafka {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Kafka{w: w, now: time.Now}
}

// Send implements domain.Notifier
func (k *Kafka) Send(ctx context.Context, req fire.NotificationRequest) (domain.Delivery, error) {
	msg, err := k.message(req)
	if err != nil {
		return domain.Delivery{Failed: 1}, err
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return domain.Delivery{Failed: 1}, perr.Wrap(err, perr.ErrorCodeUnavailable, "kafka: write notification")
	}
	return domain.Delivery{Sent: 1}, nil
}

// Close flushes and closes the writer
func (k *Kafka) Close() error { return k.w.Close() }

// message keys by user so one user's requests stay ordered on a partition
func (k *Kafka) message(req fire.NotificationRequest) (kafkago.Message, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return kafkago.Message{}, perr.Wrap(err, perr.ErrorCodeJSON, "kafka: encode notification")
	}
	return kafkago.Message{
		Key:   []byte(req.UserID.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(req.Kind)},
			{Key: "incident_id", Value: []byte(fmt.Sprint(req.IncidentID))},
			{Key: "produced_at", Value: []byte(k.now().UTC().Format(time.RFC3339))},
		},
	}, nil
}

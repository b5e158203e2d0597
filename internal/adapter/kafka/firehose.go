// Package kafka publishes newly ingested dig tickets to a Kafka topic, a
// feed for downstream consumers that want tickets as they appear rather
// than the daily summary. The firehose is optional; with no brokers
// configured the pipeline runs without it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// Firehose produces dig ticket messages to a Kafka topic.
type Firehose struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewFirehose creates a Kafka producer for the configured ticket topic.
func NewFirehose(brokers []string, topic string, logger *slog.Logger) *Firehose {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Firehose{writer: w, logger: logger}
}

// PublishNew serializes and publishes the tickets in a single WriteMessages
// call, keyed by dig ticket number so replays of the same ticket land on the
// same partition.
func (f *Firehose) PublishNew(ctx context.Context, records []domain.PermitRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := f.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish tickets: %w", err)
	}
	f.logger.Debug("published tickets to firehose", "count", len(records))
	return nil
}

func (f *Firehose) Close() error {
	return f.writer.Close()
}

// serializeToMessage marshals a PermitRecord into a Kafka message.
func serializeToMessage(rec domain.PermitRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize ticket %s: %w", rec.DigTicketNumber, err)
	}
	emergency := "false"
	if rec.IsEmergency {
		emergency = "true"
	}
	return kafkago.Message{
		Key:   []byte(rec.DigTicketNumber),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "emergency", Value: []byte(emergency)},
			{Key: "dig_date", Value: []byte(rec.DigDate.Format(time.RFC3339))},
		},
	}, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/zerodelay-service/internal/config"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces advisory summaries to a Kafka topic.
// It implements advisory.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one summary keyed by region, so every region's history
// stays on a single partition.
func (w *Writer) Publish(ctx context.Context, region domain.Region, summary domain.Summary) error {
	msg, err := serializeToMessage(region, summary)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s summary: %w", region, err)
	}
	w.logger.Debug("summary published", "region", region, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Summary into a Kafka message.
func serializeToMessage(region domain.Region, summary domain.Summary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(region),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "has_any", Value: []byte(strconv.FormatBool(summary.HasAny))},
			{Key: "updated_at", Value: []byte(summary.UpdatedAt)},
		},
	}, nil
}

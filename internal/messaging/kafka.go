package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/internal/validation"
	"github.com/temcen/learnrec/pkg/models"
)

// MessageWriter is the part of kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ExposureProducer publishes A/B exposure records to Kafka, keyed by learner so a
// learner's exposures stay on one partition.
type ExposureProducer struct {
	writer    MessageWriter
	validator *validation.SchemaValidator
	topic     string
	logger    *logrus.Logger
}

func NewExposureProducer(cfg *config.KafkaConfig, validator *validation.SchemaValidator, logger *logrus.Logger) *ExposureProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topics.Exposures,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		WriteTimeout: cfg.WriteTimeout,
	}
	return NewExposureProducerWithWriter(writer, cfg.Topics.Exposures, validator, logger)
}

func NewExposureProducerWithWriter(writer MessageWriter, topic string, validator *validation.SchemaValidator, logger *logrus.Logger) *ExposureProducer {
	return &ExposureProducer{
		writer:    writer,
		validator: validator,
		topic:     topic,
		logger:    logger,
	}
}

// LogExposure validates the record against the exposure contract and writes it.
func (p *ExposureProducer) LogExposure(ctx context.Context, record models.ExposureRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal exposure record: %w", err)
	}

	if p.validator != nil {
		if err := p.validator.ValidateExposureRecord(payload).Err(); err != nil {
			return fmt.Errorf("exposure record rejected: %w", err)
		}
	}

	message := kafka.Message{
		Key:   []byte(record.UserID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "variant", Value: []byte(record.Variant)},
			{Key: "mode", Value: []byte(record.Mode)},
			{Key: "timestamp", Value: []byte(record.Timestamp.Format(time.RFC3339))},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write exposure to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"user_id": record.UserID,
		"variant": record.Variant,
		"topic":   p.topic,
	}).Debug("Exposure published to Kafka")

	return nil
}

func (p *ExposureProducer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close exposure producer: %w", err)
	}
	return nil
}

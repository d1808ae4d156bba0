package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"checklist-tracker/internal/config"
	"checklist-tracker/internal/models"
	"checklist-tracker/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ErrDisabled is returned when no Kafka brokers are configured.
var ErrDisabled = errors.New("queue disabled")

// EnsureTopic creates the checklist command topic with configured partitions (idempotent).
// If it fails (no broker, topic exists) the app still runs.
func EnsureTopic(ctx context.Context) {
	cfg := config.Get()
	if !cfg.QueueEnabled() {
		return
	}
	conn, err := kafka.Dial("tcp", cfg.KafkaBrokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.KafkaTopic,
		NumPartitions:     cfg.KafkaPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug(ctx, "Kafka create topic failed (topic may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", cfg.KafkaTopic, "partitions", cfg.KafkaPartitions)
}

var (
	writer *kafka.Writer
	wOnce  sync.Once
)

// Producer returns the global Kafka writer for checklist commands, or nil when the queue is disabled.
func Producer(ctx context.Context) *kafka.Writer {
	wOnce.Do(func() {
		cfg := config.Get()
		if !cfg.QueueEnabled() {
			logger.Info(ctx, "Kafka producer disabled; commands are applied inline")
			return
		}
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 0,
			RequiredAcks: kafka.RequireOne,
		}
		logger.Info(ctx, "Kafka producer initialized", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	})
	return writer
}

// MessageKey partitions commands by record key so one record's commands stay ordered.
func MessageKey(cmd *models.ChecklistCommand) []byte {
	return []byte(cmd.RecordKey)
}

// PublishCommand publishes a checklist command. Returns ErrDisabled without brokers.
func PublishCommand(ctx context.Context, cmd *models.ChecklistCommand) error {
	w := Producer(ctx)
	if w == nil {
		return ErrDisabled
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   MessageKey(cmd),
		Value: payload,
	})
}

// Close flushes and closes the producer.
func Close() error {
	if writer == nil {
		return nil
	}
	return writer.Close()
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"checklist-tracker/internal/cache"
	"checklist-tracker/internal/config"
	"checklist-tracker/internal/models"
	"checklist-tracker/internal/repository"
	"checklist-tracker/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ErrPoisonMessage marks a message that will never apply: it is committed and dropped.
var ErrPoisonMessage = errors.New("poison message")

const (
	retryBaseDelay = 200 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// Applier applies one command to the store.
type Applier func(ctx context.Context, cmd *models.ChecklistCommand) (models.CheckedMap, error)

// waitFunc blocks for d or until ctx is done.
type waitFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff returns the delay before retry n (0-based): doubling from retryBaseDelay, capped at retryMaxDelay.
func backoff(n int) time.Duration {
	d := retryBaseDelay
	for i := 0; i < n && d < retryMaxDelay; i++ {
		d *= 2
	}
	return min(d, retryMaxDelay)
}

// Run starts the Kafka consumer: reads checklist commands, applies them to the DB, invalidates cache.
// Scale by running more replicas; the consumer group shares partitions.
func Run(ctx context.Context) {
	cfg := config.Get()
	if !cfg.QueueEnabled() {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var processed int64
	fetchFailures := 0
	logger.Info(ctx, "Kafka consumer started", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Kafka consumer stopped", "processed", atomic.LoadInt64(&processed))
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err, "attempt", fetchFailures+1)
			_ = sleepCtx(ctx, backoff(fetchFailures))
			fetchFailures++
			continue
		}
		fetchFailures = 0

		err = processMessage(ctx, msg.Value, repository.ApplyCommand, sleepCtx)
		switch {
		case err == nil:
			atomic.AddInt64(&processed, 1)
		case errors.Is(err, ErrPoisonMessage):
			logger.Error(ctx, "Worker dropping poison message", "error", err, "payload", string(msg.Value))
		default:
			// Shutting down mid-retry: leave it uncommitted so the group redelivers it.
			logger.Warn(ctx, "Worker stopped before message applied", "error", err, "offset", msg.Offset)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}

// processMessage handles one message, retrying transient failures with capped backoff.
// It returns nil once applied, an ErrPoisonMessage error for messages that can never
// apply, or the context error if ctx ends first.
func processMessage(ctx context.Context, payload []byte, apply Applier, wait waitFunc) error {
	for attempt := 0; ; attempt++ {
		err := HandleMessage(ctx, payload, apply)
		if err == nil || errors.Is(err, ErrPoisonMessage) {
			return err
		}
		logger.Warn(ctx, "Worker apply failed; retrying", "error", err, "attempt", attempt+1)
		if werr := wait(ctx, backoff(attempt)); werr != nil {
			return werr
		}
	}
}

// HandleMessage decodes and applies one queued command, then invalidates the record's cache entry.
// Decode, validation and invalid-command failures are wrapped in ErrPoisonMessage.
func HandleMessage(ctx context.Context, payload []byte, apply Applier) error {
	var cmd models.ChecklistCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	if cmd.RecordKey == "" || cmd.ItemID == "" {
		return fmt.Errorf("%w: command %q: missing date or item_id", ErrPoisonMessage, cmd.Action)
	}
	switch cmd.Action {
	case models.ActionToggle, models.ActionAttachPhoto:
		if _, err := apply(ctx, &cmd); err != nil {
			if errors.Is(err, repository.ErrInvalidCommand) {
				return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
			}
			return err
		}
	default:
		logger.Warn(ctx, "Worker ignoring unknown action", "action", cmd.Action)
		return nil
	}
	cache.InvalidateRecord(ctx, cmd.RecordKey)
	return nil
}

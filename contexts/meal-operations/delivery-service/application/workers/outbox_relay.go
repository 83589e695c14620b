package workers

import (
	"context"
	"log/slog"
	"time"

	application "mealtrack/contexts/meal-operations/delivery-service/application"
	"mealtrack/contexts/meal-operations/delivery-service/ports"
)

// OutboxRelay drains pending delivery events and publishes them to the
// message bus. It is driven by the worker process on a fixed interval.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = "plan.delivered"
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("delivery outbox list pending failed",
			"event", "delivery_outbox_list_failed",
			"module", "meal-operations/delivery-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, message := range pending {
		envelope := ports.EventEnvelope{
			EventID:       message.OutboxID,
			EventType:     message.EventType,
			OccurredAt:    message.CreatedAt,
			SourceService: "delivery-service",
			PartitionKey:  message.PartitionKey,
			SchemaVersion: 1,
			Data:          message.Payload,
		}
		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("delivery outbox publish failed",
				"event", "delivery_outbox_publish_failed",
				"module", "meal-operations/delivery-service",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_type", message.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, message.OutboxID, now); err != nil {
			logger.Error("delivery outbox mark published failed",
				"event", "delivery_outbox_mark_published_failed",
				"module", "meal-operations/delivery-service",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	if len(pending) > 0 {
		logger.Info("delivery outbox relay cycle completed",
			"event", "delivery_outbox_relay_completed",
			"module", "meal-operations/delivery-service",
			"layer", "worker",
			"published_count", len(pending),
		)
	}
	return nil
}

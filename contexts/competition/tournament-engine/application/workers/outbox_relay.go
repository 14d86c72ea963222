package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "tandem/contexts/competition/tournament-engine/application"
	"tandem/contexts/competition/tournament-engine/ports"
)

// OutboxRelay publishes pending tournament outbox rows to the event bus, one
// topic per event type. Rows stay pending until the publish succeeds.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("tournament outbox list failed",
			"event", "tournament_outbox_list_failed",
			"module", "competition/tournament-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	published, skipped := 0, 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Warn("tournament outbox row skipped",
				"event", "tournament_outbox_decode_skipped",
				"module", "competition/tournament-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			skipped++
			continue
		}

		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("tournament outbox publish failed",
				"event", "tournament_outbox_publish_failed",
				"module", "competition/tournament-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"topic", topic,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("tournament outbox mark published failed",
				"event", "tournament_outbox_mark_published_failed",
				"module", "competition/tournament-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		published++
	}

	if len(pending) > 0 {
		logger.Info("tournament outbox relay cycle completed",
			"event", "tournament_outbox_relay_completed",
			"module", "competition/tournament-engine",
			"layer", "worker",
			"published_count", published,
			"skipped_count", skipped,
		)
	}
	return nil
}

package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	application "tandem/contexts/competition/rating-engine/application"
	"tandem/contexts/competition/rating-engine/domain/entities"
	domainerrors "tandem/contexts/competition/rating-engine/domain/errors"
	"tandem/contexts/competition/rating-engine/ports"
)

const (
	tournamentCompletedTopic        = "tournament.completed"
	defaultTournamentCompletedGroup = "rating-engine-tournament-completed-cg"
)

type BatchRunner interface {
	RunBatch(ctx context.Context, region string) (entities.BatchReport, error)
}

// TournamentCompletedConsumer reruns the region's rating batch whenever a
// tournament in it reaches END.
type TournamentCompletedConsumer struct {
	Subscriber    ports.EventSubscriber
	Batches       BatchRunner
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c TournamentCompletedConsumer) Start(ctx context.Context) error {
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultTournamentCompletedGroup
	}
	return c.Subscriber.Subscribe(ctx, tournamentCompletedTopic, group, c.handleTournamentCompleted)
}

func (c TournamentCompletedConsumer) handleTournamentCompleted(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	var payload struct {
		Region string `json:"region"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode tournament.completed payload: %w", err)
	}
	if strings.TrimSpace(payload.Region) == "" {
		return fmt.Errorf("tournament.completed payload missing region")
	}

	report, err := c.Batches.RunBatch(ctx, payload.Region)
	if errors.Is(err, domainerrors.ErrBatchAlreadyRunning) || errors.Is(err, domainerrors.ErrLeaseLost) {
		logger.Info("rating batch already running",
			"event", "rating_batch_trigger_skipped",
			"module", "competition/rating-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"region", payload.Region,
		)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("tournament completion consumed",
		"event", "rating_tournament_completed_consumed",
		"module", "competition/rating-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"tournament_id", event.PartitionKey,
		"region", report.Region,
		"processed", report.Processed,
	)
	return nil
}

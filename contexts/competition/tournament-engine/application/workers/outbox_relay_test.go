package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"tandem/contexts/competition/tournament-engine/adapters/memory"
	"tandem/contexts/competition/tournament-engine/domain/entities"
	"tandem/contexts/competition/tournament-engine/ports"
)

type recordingPublisher struct {
	topics []string
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	if p.fail != nil {
		return p.fail
	}
	p.topics = append(p.topics, topic)
	return nil
}

func stageEvents(t *testing.T, store *memory.Store, eventTypes ...string) {
	t.Helper()
	ctx := context.Background()
	if err := store.CreateTournament(ctx, entities.Tournament{TournamentID: "t-1", State: entities.StateStart}); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	err := store.WithinTournament(ctx, "t-1", func(ctx context.Context, tx ports.TournamentTx, _ ports.TournamentAggregate) error {
		for i, eventType := range eventTypes {
			envelope := ports.EventEnvelope{
				EventID:      eventType + "-id",
				EventType:    eventType,
				OccurredAt:   time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
				PartitionKey: "t-1",
			}
			if err := tx.AppendOutbox(ctx, envelope); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("stage events: %v", err)
	}
}

func TestOutboxRelayPublishesPendingRowsOnce(t *testing.T) {
	store := memory.NewStore()
	stageEvents(t, store, "tournament.state_changed", "tournament.completed")
	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(publisher.topics) != 2 || publisher.topics[1] != "tournament.completed" {
		t.Fatalf("unexpected topics: %v", publisher.topics)
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(publisher.topics) != 2 {
		t.Fatalf("expected published rows to be skipped, got %v", publisher.topics)
	}
}

func TestOutboxRelayKeepsRowsWhenPublishFails(t *testing.T) {
	store := memory.NewStore()
	stageEvents(t, store, "tournament.state_changed")
	relay := OutboxRelay{Outbox: store, Publisher: &recordingPublisher{fail: errors.New("bus down")}}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish error")
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("expected the row to stay pending, got %d", len(pending))
	}
}

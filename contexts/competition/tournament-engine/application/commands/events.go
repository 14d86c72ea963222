package commands

import (
	"context"
	"encoding/json"
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	"tandem/contexts/competition/tournament-engine/ports"
)

const (
	EventStateChanged       = "tournament.state_changed"
	EventBattleResolved     = "tournament.battle.resolved"
	EventRevoteRequired     = "tournament.battle.revote_required"
	EventNextBattleChanged  = "tournament.next_battle_changed"
	EventWildcardAssigned   = "tournament.wildcard_assigned"
	EventTournamentComplete = "tournament.completed"
)

func newTournamentEnvelope(
	eventID string,
	eventType string,
	tournamentID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "tournament-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "tournament_id",
		PartitionKey:     tournamentID,
		Data:             payload,
	}, nil
}

// emitter appends envelopes to the outbox of the running transaction.
type emitter struct {
	tx    ports.TournamentTx
	idGen ports.IDGenerator
	now   time.Time
}

func (e emitter) emit(ctx context.Context, eventType string, tournamentID string, data map[string]any) error {
	eventID, err := e.idGen.NewID(ctx)
	if err != nil {
		return err
	}
	data["tournament_id"] = tournamentID
	envelope, err := newTournamentEnvelope(eventID, eventType, tournamentID, e.now, data)
	if err != nil {
		return err
	}
	return e.tx.AppendOutbox(ctx, envelope)
}

func (e emitter) stateChanged(ctx context.Context, tournament entities.Tournament, from entities.State) error {
	return e.emit(ctx, EventStateChanged, tournament.TournamentID, map[string]any{
		"from_state": string(from),
		"to_state":   string(tournament.State),
		"region":     tournament.Region,
	})
}

func (e emitter) battleResolved(ctx context.Context, battle entities.Battle, auto bool) error {
	data := map[string]any{
		"battle_id": battle.BattleID,
		"round":     battle.Round,
		"bracket":   battle.Bracket.String(),
		"auto":      auto,
	}
	if battle.WinnerID != nil {
		data["winner_id"] = *battle.WinnerID
	}
	return e.emit(ctx, EventBattleResolved, battle.TournamentID, data)
}

func (e emitter) nextBattleChanged(ctx context.Context, tournament entities.Tournament) error {
	data := map[string]any{}
	if tournament.NextBattleID != nil {
		data["next_battle_id"] = *tournament.NextBattleID
	}
	return e.emit(ctx, EventNextBattleChanged, tournament.TournamentID, data)
}

func (e emitter) completed(ctx context.Context, tournament entities.Tournament) error {
	return e.emit(ctx, EventTournamentComplete, tournament.TournamentID, map[string]any{
		"region":   tournament.Region,
		"is_final": tournament.IsFinal,
	})
}

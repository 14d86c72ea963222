package commands

import (
	"context"
	"fmt"
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/domain/services"
	"tandem/contexts/competition/tournament-engine/ports"
)

// progression carries one command's view of the battle phase. Every write
// goes through tx; competitors and arena track what has been written so far.
type progression struct {
	tx          ports.TournamentTx
	events      emitter
	tournament  entities.Tournament
	competitors []entities.Competitor
	arena       *services.BattleArena
	now         time.Time
}

func newProgression(tx ports.TournamentTx, events emitter, aggregate ports.TournamentAggregate) *progression {
	return &progression{
		tx:          tx,
		events:      events,
		tournament:  aggregate.Tournament,
		competitors: append([]entities.Competitor(nil), aggregate.Competitors...),
		arena:       services.NewBattleArena(aggregate.Battles),
		now:         events.now,
	}
}

// materialize writes a bracket plan: bye competitors first, then battle
// shells in plan order, then the forward edges once ids are known.
func (p *progression) materialize(ctx context.Context, plan services.BracketPlan) error {
	seats := make([]*int64, len(plan.Seeds))
	for i, seed := range plan.Seeds {
		switch seed.Kind {
		case services.SeedQualifier:
			seats[i] = entities.Int64Ptr(seed.CompetitorID)
		case services.SeedBye:
			bye, err := p.tx.AddCompetitor(ctx, entities.Competitor{
				TournamentID: p.tournament.TournamentID,
				IsBye:        true,
				CreatedAt:    p.now,
			})
			if err != nil {
				return err
			}
			p.competitors = append(p.competitors, bye)
			seats[i] = entities.Int64Ptr(bye.CompetitorID)
		}
	}

	shells := make([]entities.Battle, 0, len(plan.Battles))
	for _, planned := range plan.Battles {
		battle := entities.Battle{
			TournamentID: p.tournament.TournamentID,
			Round:        planned.Round,
			Bracket:      planned.Bracket,
			CreatedAt:    p.now,
		}
		if planned.LeftSeed != nil {
			battle.LeftCompetitorID = seats[*planned.LeftSeed]
		}
		if planned.RightSeed != nil {
			battle.RightCompetitorID = seats[*planned.RightSeed]
		}
		shells = append(shells, battle)
	}
	created, err := p.tx.AddBattles(ctx, shells)
	if err != nil {
		return err
	}
	if len(created) != len(plan.Battles) {
		return fmt.Errorf("%w: stored %d of %d battles", domainerrors.ErrInvariantViolation, len(created), len(plan.Battles))
	}

	for i, planned := range plan.Battles {
		if planned.WinnerNext != nil {
			created[i].WinnerNextBattleID = entities.Int64Ptr(created[*planned.WinnerNext].BattleID)
		}
		if planned.LoserNext != nil {
			created[i].LoserNextBattleID = entities.Int64Ptr(created[*planned.LoserNext].BattleID)
		}
		p.arena.Put(created[i])
	}
	return nil
}

// extendLadder creates the next DRIFT_WARS battle before battle resolves, so
// the winner has somewhere to go.
func (p *progression) extendLadder(ctx context.Context, battle entities.Battle) error {
	if p.tournament.Format != entities.FormatDriftWars || battle.WinnerNextBattleID != nil {
		return nil
	}
	ranked := ladderOrder(p.competitors)
	seed, ok := services.NextLadderBattle(len(ranked), battle.Round)
	if !ok {
		return nil
	}
	created, err := p.tx.AddBattles(ctx, []entities.Battle{{
		TournamentID:      p.tournament.TournamentID,
		Round:             battle.Round + 1,
		Bracket:           entities.BracketUpper,
		RightCompetitorID: entities.Int64Ptr(ranked[seed]),
		CreatedAt:         p.now,
	}})
	if err != nil {
		return err
	}
	if len(created) != 1 {
		return fmt.Errorf("%w: ladder battle not stored", domainerrors.ErrInvariantViolation)
	}
	battle.WinnerNextBattleID = entities.Int64Ptr(created[0].BattleID)
	p.arena.Put(battle)
	p.arena.Put(created[0])
	return nil
}

// resolve records a winner, creating the next ladder battle first when needed.
func (p *progression) resolve(ctx context.Context, battleID int64, winnerID int64) error {
	battle, ok := p.arena.Battle(battleID)
	if !ok {
		return domainerrors.ErrBattleNotFound
	}
	if err := p.extendLadder(ctx, battle); err != nil {
		return err
	}
	if err := p.arena.Apply(battleID, winnerID, p.now); err != nil {
		return err
	}
	resolved, _ := p.arena.Battle(battleID)
	return p.events.battleResolved(ctx, resolved, false)
}

// selectNext runs the bye loop and moves the next-battle pointer. With no
// battle left the tournament ends.
func (p *progression) selectNext(ctx context.Context) ([]int64, error) {
	run, err := services.RunByes(p.arena, byeLookup(p.competitors), p.now)
	if err != nil {
		return nil, err
	}
	for _, battleID := range run.Resolved {
		battle, _ := p.arena.Battle(battleID)
		if err := p.events.battleResolved(ctx, battle, true); err != nil {
			return nil, err
		}
	}
	return run.Resolved, p.point(ctx, run.Next)
}

func (p *progression) point(ctx context.Context, next *entities.Battle) error {
	var nextID *int64
	if next != nil {
		nextID = entities.Int64Ptr(next.BattleID)
	}
	changed := !sameID(p.tournament.NextBattleID, nextID)
	p.tournament.NextBattleID = nextID
	p.tournament.UpdatedAt = p.now

	if nextID == nil && p.tournament.State != entities.StateEnd {
		from, err := transition(&p.tournament, entities.StateEnd, p.now)
		if err != nil {
			return err
		}
		if err := p.events.stateChanged(ctx, p.tournament, from); err != nil {
			return err
		}
		if err := p.events.completed(ctx, p.tournament); err != nil {
			return err
		}
	}
	if changed {
		return p.events.nextBattleChanged(ctx, p.tournament)
	}
	return nil
}

// flush persists the battles and the tournament row touched by the command.
func (p *progression) flush(ctx context.Context) error {
	if changed := p.arena.Changed(); len(changed) > 0 {
		if err := p.tx.UpdateBattles(ctx, changed); err != nil {
			return err
		}
	}
	return p.tx.SaveTournament(ctx, p.tournament)
}

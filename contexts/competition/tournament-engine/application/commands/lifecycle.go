package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "tandem/contexts/competition/tournament-engine/application"
	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/domain/services"
	"tandem/contexts/competition/tournament-engine/ports"
)

type CreateTournamentCommand struct {
	Name           string
	Region         string
	Format         entities.Format
	QualifyingLaps int
	ScoreFormula   entities.ScoreFormula
	BracketSize    int
	FullInclusion  bool
	IsFinal        bool
	Numbering      entities.Numbering
}

type CreateTournamentUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc CreateTournamentUseCase) Execute(ctx context.Context, cmd CreateTournamentCommand) (entities.Tournament, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.ScoreFormula == "" {
		cmd.ScoreFormula = entities.ScoreFormulaCumulative
	}
	if cmd.Numbering == "" {
		cmd.Numbering = entities.NumberingNone
	}
	name := strings.TrimSpace(cmd.Name)
	region := entities.NormalizeRegion(cmd.Region)
	switch {
	case name == "", region == "":
		return entities.Tournament{}, domainerrors.ErrInvalidInput
	case !cmd.Format.Valid(), !cmd.ScoreFormula.Valid(), !cmd.Numbering.Valid():
		return entities.Tournament{}, domainerrors.ErrInvalidInput
	case cmd.QualifyingLaps < 1:
		return entities.Tournament{}, fmt.Errorf("%w: qualifying laps must be at least 1", domainerrors.ErrInvalidInput)
	case cmd.BracketSize != 0 && (cmd.BracketSize < 2 || !services.IsPowerOfTwo(cmd.BracketSize)):
		return entities.Tournament{}, fmt.Errorf("%w: bracket size must be a power of two", domainerrors.ErrInvalidInput)
	}

	tournamentID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Tournament{}, err
	}
	now := uc.Clock.Now().UTC()
	tournament := entities.Tournament{
		TournamentID:   tournamentID,
		Name:           name,
		Region:         region,
		Format:         cmd.Format,
		State:          entities.StateStart,
		QualifyingLaps: cmd.QualifyingLaps,
		ScoreFormula:   cmd.ScoreFormula,
		BracketSize:    cmd.BracketSize,
		FullInclusion:  cmd.FullInclusion,
		IsFinal:        cmd.IsFinal,
		Numbering:      cmd.Numbering,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.Tournaments.CreateTournament(ctx, tournament); err != nil {
		return entities.Tournament{}, err
	}

	logger.Info("tournament created",
		"event", "tournament_created",
		"module", moduleName,
		"layer", "application",
		"tournament_id", tournament.TournamentID,
		"format", string(tournament.Format),
		"region", tournament.Region,
	)
	return tournament, nil
}

type OpenRegistrationUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc OpenRegistrationUseCase) Execute(ctx context.Context, tournamentID string) (entities.Tournament, error) {
	logger := application.ResolveLogger(uc.Logger)
	ctx, span := application.StartSpan(ctx, "tournament.open_registration", tournamentID)
	var result entities.Tournament
	err := uc.Tournaments.WithinTournament(ctx, tournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		now := uc.Clock.Now().UTC()
		tournament := aggregate.Tournament
		from, err := transition(&tournament, entities.StateRegistration, now)
		if err != nil {
			return err
		}
		if err := tx.SaveTournament(ctx, tournament); err != nil {
			return err
		}
		result = tournament
		return emitter{tx: tx, idGen: uc.IDGenerator, now: now}.stateChanged(ctx, tournament, from)
	})
	application.EndSpan(span, err)
	if err != nil {
		return entities.Tournament{}, err
	}

	logger.Info("tournament registration opened",
		"event", "tournament_registration_opened",
		"module", moduleName,
		"layer", "application",
		"tournament_id", tournamentID,
	)
	return result, nil
}

type RegisterCompetitorCommand struct {
	TournamentID string
	DriverID     string
	// Number is the driver's permanent number, used by GLOBAL numbering.
	Number int
}

type RegisterCompetitorUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (uc RegisterCompetitorUseCase) Execute(ctx context.Context, cmd RegisterCompetitorCommand) (entities.Competitor, error) {
	logger := application.ResolveLogger(uc.Logger)
	driverID := strings.TrimSpace(cmd.DriverID)
	if driverID == "" {
		return entities.Competitor{}, domainerrors.ErrInvalidInput
	}

	ctx, span := application.StartSpan(ctx, "tournament.register_competitor", cmd.TournamentID)
	var result entities.Competitor
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		if !aggregate.Tournament.AcceptsEntries() {
			return fmt.Errorf("%w: registration is closed", domainerrors.ErrInvalidTransition)
		}
		competitor, err := newEntrant(aggregate, driverID, cmd.Number, uc.Clock.Now().UTC())
		if err != nil {
			return err
		}
		result, err = tx.AddCompetitor(ctx, competitor)
		return err
	})
	application.EndSpan(span, err)
	if err != nil {
		return entities.Competitor{}, err
	}

	logger.Info("competitor registered",
		"event", "tournament_competitor_registered",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"competitor_id", result.CompetitorID,
		"driver_id", driverID,
	)
	return result, nil
}

// newEntrant validates a driver entry and assigns its display number.
func newEntrant(aggregate ports.TournamentAggregate, driverID string, number int, now time.Time) (entities.Competitor, error) {
	used := make(map[int]struct{})
	count := 0
	for _, competitor := range aggregate.Competitors {
		if competitor.IsBye {
			continue
		}
		if competitor.DriverID == driverID {
			return entities.Competitor{}, domainerrors.ErrAlreadyRegistered
		}
		used[competitor.Number] = struct{}{}
		count++
	}

	competitor := entities.Competitor{
		TournamentID: aggregate.Tournament.TournamentID,
		DriverID:     driverID,
		CreatedAt:    now,
	}
	switch aggregate.Tournament.Numbering {
	case entities.NumberingSequential:
		competitor.Number = count + 1
	case entities.NumberingGlobal:
		if number <= 0 {
			return entities.Competitor{}, fmt.Errorf("%w: driver number is required", domainerrors.ErrInvalidInput)
		}
		if _, taken := used[number]; taken {
			return entities.Competitor{}, fmt.Errorf("%w: number %d is taken", domainerrors.ErrAlreadyRegistered, number)
		}
		competitor.Number = number
	}
	return competitor, nil
}

type AddJudgeCommand struct {
	TournamentID string
	DriverID     string
	Name         string
}

type AddJudgeUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc AddJudgeUseCase) Execute(ctx context.Context, cmd AddJudgeCommand) (entities.Judge, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return entities.Judge{}, domainerrors.ErrInvalidInput
	}

	ctx, span := application.StartSpan(ctx, "tournament.add_judge", cmd.TournamentID)
	var result entities.Judge
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		if !aggregate.Tournament.AcceptsEntries() {
			return fmt.Errorf("%w: judges are fixed once qualifying starts", domainerrors.ErrInvalidTransition)
		}
		driverID := strings.TrimSpace(cmd.DriverID)
		for _, judge := range aggregate.Judges {
			if driverID != "" && judge.DriverID == driverID {
				return domainerrors.ErrAlreadyRegistered
			}
		}
		judgeID, err := uc.IDGenerator.NewID(ctx)
		if err != nil {
			return err
		}
		result = entities.Judge{
			JudgeID:      judgeID,
			TournamentID: aggregate.Tournament.TournamentID,
			DriverID:     driverID,
			Name:         name,
			CreatedAt:    uc.Clock.Now().UTC(),
		}
		return tx.AddJudge(ctx, result)
	})
	application.EndSpan(span, err)
	if err != nil {
		return entities.Judge{}, err
	}

	logger.Info("judge added",
		"event", "tournament_judge_added",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"judge_id", result.JudgeID,
	)
	return result, nil
}

type StartQualifyingUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute creates every qualifying lap up front and points the tournament at
// the first one.
func (uc StartQualifyingUseCase) Execute(ctx context.Context, tournamentID string) (entities.Tournament, error) {
	logger := application.ResolveLogger(uc.Logger)
	ctx, span := application.StartSpan(ctx, "tournament.start_qualifying", tournamentID)
	var result entities.Tournament
	lapCount := 0
	err := uc.Tournaments.WithinTournament(ctx, tournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		now := uc.Clock.Now().UTC()
		tournament := aggregate.Tournament
		from, err := transition(&tournament, entities.StateQualifying, now)
		if err != nil {
			return err
		}
		if len(aggregate.Judges) == 0 {
			return domainerrors.ErrInsufficientJudges
		}
		field := entrants(aggregate.Competitors)
		if minimum := tournament.Format.MinimumCompetitors(tournament.FullInclusion); len(field) < minimum {
			return fmt.Errorf("%w: %s needs %d, have %d",
				domainerrors.ErrInsufficientCompetitors, tournament.Format, minimum, len(field))
		}

		laps := make([]entities.Lap, 0, len(field)*tournament.QualifyingLaps)
		for _, competitor := range field {
			for round := 1; round <= tournament.QualifyingLaps; round++ {
				laps = append(laps, entities.Lap{
					TournamentID: tournament.TournamentID,
					CompetitorID: competitor.CompetitorID,
					Round:        round,
					CreatedAt:    now,
				})
			}
		}
		created, err := tx.AddLaps(ctx, laps)
		if err != nil {
			return err
		}
		lapCount = len(created)
		tournament.NextQualifyingLapID = services.NextQualifyingLap(created, nil)
		if err := tx.SaveTournament(ctx, tournament); err != nil {
			return err
		}
		result = tournament
		return emitter{tx: tx, idGen: uc.IDGenerator, now: now}.stateChanged(ctx, tournament, from)
	})
	application.EndSpan(span, err)
	if err != nil {
		return entities.Tournament{}, err
	}

	logger.Info("tournament qualifying started",
		"event", "tournament_qualifying_started",
		"module", moduleName,
		"layer", "application",
		"tournament_id", tournamentID,
		"lap_count", lapCount,
	)
	return result, nil
}

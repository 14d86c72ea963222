package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/ports"
	"tandem/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or extends the tournament tables.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	err := r.db.WithContext(ctx).AutoMigrate(
		&tournamentModel{},
		&competitorModel{},
		&judgeModel{},
		&lapModel{},
		&lapScoreModel{},
		&battleModel{},
		&battleVoteModel{},
		&outboxModel{},
		&idempotencyModel{},
	)
	if err != nil {
		return r.logError("tournament_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) CreateTournament(ctx context.Context, tournament entities.Tournament) error {
	row := tournamentModelFromEntity(tournament)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("tournament_repo_create_failed", err, "tournament_id", tournament.TournamentID)
	}
	return nil
}

func (r *Repository) ListTournaments(ctx context.Context, filter ports.TournamentFilter) ([]entities.Tournament, error) {
	tx := r.db.WithContext(ctx).Model(&tournamentModel{})
	if region := strings.TrimSpace(filter.Region); region != "" {
		tx = tx.Where("region = ?", region)
	}
	if filter.State != "" {
		tx = tx.Where("state = ?", string(filter.State))
	}

	var rows []tournamentModel
	if err := tx.Order("created_at ASC, tournament_id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("tournament_repo_list_failed", err, "region", filter.Region)
	}
	items := make([]entities.Tournament, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetTournamentAggregate(ctx context.Context, tournamentID string) (ports.TournamentAggregate, error) {
	aggregate, err := loadAggregate(r.db.WithContext(ctx), strings.TrimSpace(tournamentID), false)
	if err != nil && !errors.Is(err, domainerrors.ErrTournamentNotFound) {
		return ports.TournamentAggregate{}, r.logError("tournament_repo_load_failed", err, "tournament_id", tournamentID)
	}
	return aggregate, err
}

// WithinTournament opens a transaction holding the tournament row lock and
// hands fn the aggregate read under that lock.
func (r *Repository) WithinTournament(
	ctx context.Context,
	tournamentID string,
	fn func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error,
) error {
	tournamentID = strings.TrimSpace(tournamentID)
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		aggregate, err := loadAggregate(db, tournamentID, true)
		if err != nil {
			return err
		}
		return fn(ctx, &txn{db: db, tournamentID: tournamentID}, aggregate)
	})
	if err != nil && !isDomainError(err) {
		return r.logError("tournament_repo_transaction_failed", err, "tournament_id", tournamentID)
	}
	return err
}

func loadAggregate(db *gorm.DB, tournamentID string, lock bool) (ports.TournamentAggregate, error) {
	query := db
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var root tournamentModel
	if err := query.Where("tournament_id = ?", tournamentID).First(&root).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.TournamentAggregate{}, domainerrors.ErrTournamentNotFound
		}
		return ports.TournamentAggregate{}, err
	}

	var (
		competitors []competitorModel
		judges      []judgeModel
		laps        []lapModel
		lapScores   []lapScoreModel
		battles     []battleModel
		votes       []battleVoteModel
	)
	loads := []struct {
		dest  any
		order string
	}{
		{&competitors, "competitor_id ASC"},
		{&judges, "created_at ASC, judge_id ASC"},
		{&laps, "lap_id ASC"},
		{&lapScores, "lap_id ASC, judge_id ASC"},
		{&battles, "battle_id ASC"},
		{&votes, "battle_id ASC, judge_id ASC"},
	}
	for _, load := range loads {
		if err := db.Where("tournament_id = ?", tournamentID).Order(load.order).Find(load.dest).Error; err != nil {
			return ports.TournamentAggregate{}, err
		}
	}

	aggregate := ports.TournamentAggregate{
		Tournament:  root.toEntity(),
		Competitors: make([]entities.Competitor, 0, len(competitors)),
		Judges:      make([]entities.Judge, 0, len(judges)),
		Laps:        make([]entities.Lap, 0, len(laps)),
		LapScores:   make([]entities.LapScore, 0, len(lapScores)),
		Battles:     make([]entities.Battle, 0, len(battles)),
		Votes:       make([]entities.BattleVote, 0, len(votes)),
	}
	for _, row := range competitors {
		aggregate.Competitors = append(aggregate.Competitors, row.toEntity())
	}
	for _, row := range judges {
		aggregate.Judges = append(aggregate.Judges, row.toEntity())
	}
	for _, row := range laps {
		aggregate.Laps = append(aggregate.Laps, row.toEntity())
	}
	for _, row := range lapScores {
		aggregate.LapScores = append(aggregate.LapScores, row.toEntity())
	}
	for _, row := range battles {
		aggregate.Battles = append(aggregate.Battles, row.toEntity())
	}
	for _, row := range votes {
		aggregate.Votes = append(aggregate.Votes, row.toEntity())
	}
	return aggregate, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("tournament_repo_list_outbox_failed", err)
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("tournament_repo_mark_outbox_failed", result.Error, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "competition/tournament-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tournament repository operation failed", fields...)
	return err
}

// txn writes through the transaction opened by WithinTournament.
type txn struct {
	db           *gorm.DB
	tournamentID string
}

func (t *txn) SaveTournament(_ context.Context, tournament entities.Tournament) error {
	result := t.db.Model(&tournamentModel{}).
		Where("tournament_id = ?", t.tournamentID).
		Updates(map[string]any{
			"state":                  string(tournament.State),
			"next_qualifying_lap_id": tournament.NextQualifyingLapID,
			"next_battle_id":         tournament.NextBattleID,
			"updated_at":             tournament.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrTournamentNotFound
	}
	return nil
}

func (t *txn) AddCompetitor(_ context.Context, competitor entities.Competitor) (entities.Competitor, error) {
	competitor.TournamentID = t.tournamentID
	row := competitorModelFromEntity(competitor)
	if err := t.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Competitor{}, domainerrors.ErrConflict
		}
		return entities.Competitor{}, err
	}
	return row.toEntity(), nil
}

func (t *txn) UpdateCompetitors(_ context.Context, competitors []entities.Competitor) error {
	for _, competitor := range competitors {
		result := t.db.Model(&competitorModel{}).
			Where("tournament_id = ? AND competitor_id = ?", t.tournamentID, competitor.CompetitorID).
			Updates(map[string]any{
				"qualifying_position": competitor.QualifyingPosition,
				"number":              competitor.Number,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrCompetitorNotFound
		}
	}
	return nil
}

func (t *txn) AddJudge(_ context.Context, judge entities.Judge) error {
	row := judgeModel{
		JudgeID:      strings.TrimSpace(judge.JudgeID),
		TournamentID: t.tournamentID,
		DriverID:     strings.TrimSpace(judge.DriverID),
		Name:         strings.TrimSpace(judge.Name),
		CreatedAt:    judge.CreatedAt.UTC(),
	}
	if err := t.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return err
	}
	return nil
}

func (t *txn) AddLaps(_ context.Context, laps []entities.Lap) ([]entities.Lap, error) {
	if len(laps) == 0 {
		return nil, nil
	}
	rows := make([]lapModel, 0, len(laps))
	for _, lap := range laps {
		rows = append(rows, lapModel{
			TournamentID: t.tournamentID,
			CompetitorID: lap.CompetitorID,
			Round:        lap.Round,
			Penalty:      lap.Penalty,
			CreatedAt:    lap.CreatedAt.UTC(),
		})
	}
	if err := t.db.Create(&rows).Error; err != nil {
		return nil, err
	}
	created := make([]entities.Lap, 0, len(rows))
	for _, row := range rows {
		created = append(created, row.toEntity())
	}
	return created, nil
}

func (t *txn) UpdateLap(_ context.Context, lap entities.Lap) error {
	result := t.db.Model(&lapModel{}).
		Where("tournament_id = ? AND lap_id = ?", t.tournamentID, lap.LapID).
		Update("penalty", lap.Penalty)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrLapNotFound
	}
	return nil
}

func (t *txn) UpsertLapScore(_ context.Context, score entities.LapScore) error {
	row := lapScoreModel{
		JudgeID:      strings.TrimSpace(score.JudgeID),
		LapID:        score.LapID,
		TournamentID: t.tournamentID,
		Score:        score.Score,
		UpdatedAt:    score.UpdatedAt.UTC(),
	}
	return t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "judge_id"}, {Name: "lap_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(&row).Error
}

func (t *txn) AddBattles(_ context.Context, battles []entities.Battle) ([]entities.Battle, error) {
	if len(battles) == 0 {
		return nil, nil
	}
	rows := make([]battleModel, 0, len(battles))
	for _, battle := range battles {
		battle.TournamentID = t.tournamentID
		rows = append(rows, battleModelFromEntity(battle))
	}
	if err := t.db.Create(&rows).Error; err != nil {
		return nil, err
	}
	created := make([]entities.Battle, 0, len(rows))
	for _, row := range rows {
		created = append(created, row.toEntity())
	}
	return created, nil
}

func (t *txn) UpdateBattles(_ context.Context, battles []entities.Battle) error {
	for _, battle := range battles {
		result := t.db.Model(&battleModel{}).
			Where("tournament_id = ? AND battle_id = ?", t.tournamentID, battle.BattleID).
			Updates(map[string]any{
				"left_competitor_id":    battle.LeftCompetitorID,
				"right_competitor_id":   battle.RightCompetitorID,
				"winner_id":             battle.WinnerID,
				"winner_next_battle_id": battle.WinnerNextBattleID,
				"loser_next_battle_id":  battle.LoserNextBattleID,
				"resolved_at":           normalizeOptionalTime(battle.ResolvedAt),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrBattleNotFound
		}
	}
	return nil
}

func (t *txn) UpsertBattleVote(_ context.Context, vote entities.BattleVote) error {
	row := battleVoteModel{
		JudgeID:      strings.TrimSpace(vote.JudgeID),
		BattleID:     vote.BattleID,
		TournamentID: t.tournamentID,
		Choice:       string(vote.Choice),
		CompetitorID: vote.CompetitorID,
		UpdatedAt:    vote.UpdatedAt.UTC(),
	}
	return t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "judge_id"}, {Name: "battle_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"choice", "competitor_id", "updated_at"}),
	}).Create(&row).Error
}

func (t *txn) DeleteBattleVotes(_ context.Context, battleID int64) error {
	return t.db.
		Where("tournament_id = ? AND battle_id = ?", t.tournamentID, battleID).
		Delete(&battleVoteModel{}).
		Error
}

func (t *txn) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return t.db.Create(&row).Error
}

func (t *txn) GetIdempotency(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := t.db.Where("key = ?", strings.TrimSpace(key)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}

	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := t.db.Where("key = ?", row.Key).Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:             row.Key,
		RequestHash:     row.RequestHash,
		TournamentID:    row.TournamentID,
		ResponsePayload: append([]byte(nil), row.ResponsePayload...),
		ExpiresAt:       row.ExpiresAt.UTC(),
	}, true, nil
}

func (t *txn) PutIdempotency(_ context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             strings.TrimSpace(record.Key),
		RequestHash:     record.RequestHash,
		TournamentID:    strings.TrimSpace(record.TournamentID),
		ResponsePayload: append([]byte(nil), record.ResponsePayload...),
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	result := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := t.db.Select("request_hash").Where("key = ?", row.Key).First(&existing).Error; err != nil {
		return err
	}
	if existing.RequestHash != row.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

type tournamentModel struct {
	TournamentID        string    `gorm:"column:tournament_id;primaryKey"`
	Name                string    `gorm:"column:name"`
	Region              string    `gorm:"column:region;index"`
	Format              string    `gorm:"column:format"`
	State               string    `gorm:"column:state"`
	QualifyingLaps      int       `gorm:"column:qualifying_laps"`
	ScoreFormula        string    `gorm:"column:score_formula"`
	BracketSize         int       `gorm:"column:bracket_size"`
	FullInclusion       bool      `gorm:"column:full_inclusion"`
	IsFinal             bool      `gorm:"column:is_final"`
	Numbering           string    `gorm:"column:numbering"`
	NextQualifyingLapID *int64    `gorm:"column:next_qualifying_lap_id"`
	NextBattleID        *int64    `gorm:"column:next_battle_id"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (tournamentModel) TableName() string {
	return "tournaments"
}

func tournamentModelFromEntity(item entities.Tournament) tournamentModel {
	return tournamentModel{
		TournamentID:        strings.TrimSpace(item.TournamentID),
		Name:                strings.TrimSpace(item.Name),
		Region:              item.Region,
		Format:              string(item.Format),
		State:               string(item.State),
		QualifyingLaps:      item.QualifyingLaps,
		ScoreFormula:        string(item.ScoreFormula),
		BracketSize:         item.BracketSize,
		FullInclusion:       item.FullInclusion,
		IsFinal:             item.IsFinal,
		Numbering:           string(item.Numbering),
		NextQualifyingLapID: item.NextQualifyingLapID,
		NextBattleID:        item.NextBattleID,
		CreatedAt:           item.CreatedAt.UTC(),
		UpdatedAt:           item.UpdatedAt.UTC(),
	}
}

func (m tournamentModel) toEntity() entities.Tournament {
	return entities.Tournament{
		TournamentID:        m.TournamentID,
		Name:                m.Name,
		Region:              m.Region,
		Format:              entities.Format(m.Format),
		State:               entities.State(m.State),
		QualifyingLaps:      m.QualifyingLaps,
		ScoreFormula:        entities.ScoreFormula(m.ScoreFormula),
		BracketSize:         m.BracketSize,
		FullInclusion:       m.FullInclusion,
		IsFinal:             m.IsFinal,
		Numbering:           entities.Numbering(m.Numbering),
		NextQualifyingLapID: m.NextQualifyingLapID,
		NextBattleID:        m.NextBattleID,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}
}

type competitorModel struct {
	CompetitorID       int64     `gorm:"column:competitor_id;primaryKey;autoIncrement"`
	TournamentID       string    `gorm:"column:tournament_id;index:tournament_competitor_driver_idx,unique,where:is_bye = false"`
	DriverID           *string   `gorm:"column:driver_id;index:tournament_competitor_driver_idx,unique"`
	IsBye              bool      `gorm:"column:is_bye"`
	QualifyingPosition *int      `gorm:"column:qualifying_position"`
	Number             int       `gorm:"column:number"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (competitorModel) TableName() string {
	return "tournament_competitors"
}

func competitorModelFromEntity(item entities.Competitor) competitorModel {
	row := competitorModel{
		CompetitorID:       item.CompetitorID,
		TournamentID:       strings.TrimSpace(item.TournamentID),
		IsBye:              item.IsBye,
		QualifyingPosition: item.QualifyingPosition,
		Number:             item.Number,
		CreatedAt:          item.CreatedAt.UTC(),
	}
	if driverID := strings.TrimSpace(item.DriverID); driverID != "" && !item.IsBye {
		row.DriverID = &driverID
	}
	return row
}

func (m competitorModel) toEntity() entities.Competitor {
	item := entities.Competitor{
		CompetitorID:       m.CompetitorID,
		TournamentID:       m.TournamentID,
		IsBye:              m.IsBye,
		QualifyingPosition: m.QualifyingPosition,
		Number:             m.Number,
		CreatedAt:          m.CreatedAt.UTC(),
	}
	if m.DriverID != nil {
		item.DriverID = *m.DriverID
	}
	return item
}

type judgeModel struct {
	JudgeID      string    `gorm:"column:judge_id;primaryKey"`
	TournamentID string    `gorm:"column:tournament_id;index"`
	DriverID     string    `gorm:"column:driver_id"`
	Name         string    `gorm:"column:name"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (judgeModel) TableName() string {
	return "tournament_judges"
}

func (m judgeModel) toEntity() entities.Judge {
	return entities.Judge{
		JudgeID:      m.JudgeID,
		TournamentID: m.TournamentID,
		DriverID:     m.DriverID,
		Name:         m.Name,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type lapModel struct {
	LapID        int64     `gorm:"column:lap_id;primaryKey;autoIncrement"`
	TournamentID string    `gorm:"column:tournament_id;index"`
	CompetitorID int64     `gorm:"column:competitor_id"`
	Round        int       `gorm:"column:round"`
	Penalty      float64   `gorm:"column:penalty"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (lapModel) TableName() string {
	return "tournament_laps"
}

func (m lapModel) toEntity() entities.Lap {
	return entities.Lap{
		LapID:        m.LapID,
		TournamentID: m.TournamentID,
		CompetitorID: m.CompetitorID,
		Round:        m.Round,
		Penalty:      m.Penalty,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type lapScoreModel struct {
	JudgeID      string    `gorm:"column:judge_id;primaryKey"`
	LapID        int64     `gorm:"column:lap_id;primaryKey;autoIncrement:false"`
	TournamentID string    `gorm:"column:tournament_id;index"`
	Score        float64   `gorm:"column:score"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (lapScoreModel) TableName() string {
	return "tournament_lap_scores"
}

func (m lapScoreModel) toEntity() entities.LapScore {
	return entities.LapScore{
		JudgeID:   m.JudgeID,
		LapID:     m.LapID,
		Score:     m.Score,
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type battleModel struct {
	BattleID           int64      `gorm:"column:battle_id;primaryKey;autoIncrement"`
	TournamentID       string     `gorm:"column:tournament_id;index"`
	Round              int        `gorm:"column:round"`
	Bracket            int        `gorm:"column:bracket"`
	LeftCompetitorID   *int64     `gorm:"column:left_competitor_id"`
	RightCompetitorID  *int64     `gorm:"column:right_competitor_id"`
	WinnerID           *int64     `gorm:"column:winner_id"`
	WinnerNextBattleID *int64     `gorm:"column:winner_next_battle_id"`
	LoserNextBattleID  *int64     `gorm:"column:loser_next_battle_id"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	ResolvedAt         *time.Time `gorm:"column:resolved_at"`
}

func (battleModel) TableName() string {
	return "tournament_battles"
}

func battleModelFromEntity(item entities.Battle) battleModel {
	return battleModel{
		BattleID:           item.BattleID,
		TournamentID:       strings.TrimSpace(item.TournamentID),
		Round:              item.Round,
		Bracket:            int(item.Bracket),
		LeftCompetitorID:   item.LeftCompetitorID,
		RightCompetitorID:  item.RightCompetitorID,
		WinnerID:           item.WinnerID,
		WinnerNextBattleID: item.WinnerNextBattleID,
		LoserNextBattleID:  item.LoserNextBattleID,
		CreatedAt:          item.CreatedAt.UTC(),
		ResolvedAt:         normalizeOptionalTime(item.ResolvedAt),
	}
}

func (m battleModel) toEntity() entities.Battle {
	return entities.Battle{
		BattleID:           m.BattleID,
		TournamentID:       m.TournamentID,
		Round:              m.Round,
		Bracket:            entities.Bracket(m.Bracket),
		LeftCompetitorID:   m.LeftCompetitorID,
		RightCompetitorID:  m.RightCompetitorID,
		WinnerID:           m.WinnerID,
		WinnerNextBattleID: m.WinnerNextBattleID,
		LoserNextBattleID:  m.LoserNextBattleID,
		CreatedAt:          m.CreatedAt.UTC(),
		ResolvedAt:         normalizeOptionalTime(m.ResolvedAt),
	}
}

type battleVoteModel struct {
	JudgeID      string    `gorm:"column:judge_id;primaryKey"`
	BattleID     int64     `gorm:"column:battle_id;primaryKey;autoIncrement:false"`
	TournamentID string    `gorm:"column:tournament_id;index"`
	Choice       string    `gorm:"column:choice"`
	CompetitorID *int64    `gorm:"column:competitor_id"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (battleVoteModel) TableName() string {
	return "tournament_battle_votes"
}

func (m battleVoteModel) toEntity() entities.BattleVote {
	return entities.BattleVote{
		JudgeID:      m.JudgeID,
		BattleID:     m.BattleID,
		Choice:       entities.VoteChoice(m.Choice),
		CompetitorID: m.CompetitorID,
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	RequestHash     string    `gorm:"column:request_hash"`
	TournamentID    string    `gorm:"column:tournament_id"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "tournament_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "tournament_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isDomainError(err error) bool {
	return domainerrors.IsValidation(err) ||
		domainerrors.IsNotFound(err) ||
		errors.Is(err, domainerrors.ErrConflict)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.TournamentRepository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.TournamentTx = (*txn)(nil)

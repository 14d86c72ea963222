package postgresadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"tandem/contexts/competition/rating-engine/domain/entities"
	"tandem/contexts/competition/rating-engine/ports"

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

func (r *Repository) AutoMigrate(ctx context.Context) error {
	err := r.db.WithContext(ctx).AutoMigrate(
		&runningRatingModel{},
		&historyModel{},
		&driverRatingModel{},
		&leaseModel{},
	)
	if err != nil {
		return r.logError("rating_repo_migrate_failed", err)
	}
	return nil
}

// ListRatedBattles reads resolved battles of the region's finished
// tournaments straight from the tournament tables. The loser is whichever
// slot did not win; a bye slot yields an empty driver id.
func (r *Repository) ListRatedBattles(ctx context.Context, region string) ([]entities.RatedBattle, error) {
	var rows []ratedBattleRow
	err := r.db.WithContext(ctx).Raw(`
SELECT
	b.battle_id,
	b.tournament_id,
	t.region,
	t.is_final,
	b.created_at,
	COALESCE(w.driver_id, '') AS winner_driver_id,
	COALESCE(l.driver_id, '') AS loser_driver_id
FROM tournament_battles b
JOIN tournaments t ON t.tournament_id = b.tournament_id
LEFT JOIN tournament_competitors w ON w.competitor_id = b.winner_id AND w.is_bye = false
LEFT JOIN tournament_competitors l ON l.competitor_id = CASE
	WHEN b.winner_id = b.left_competitor_id THEN b.right_competitor_id
	ELSE b.left_competitor_id
END AND l.is_bye = false
WHERE t.region = ? AND t.state = ? AND b.winner_id IS NOT NULL
ORDER BY b.created_at ASC, b.battle_id ASC`, strings.TrimSpace(region), "END").Scan(&rows).Error
	if err != nil {
		return nil, r.logError("rating_repo_list_battles_failed", err, "region", region)
	}

	items := make([]entities.RatedBattle, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.RatedBattle{
			BattleID:       row.BattleID,
			TournamentID:   row.TournamentID,
			Region:         row.Region,
			IsFinal:        row.IsFinal,
			WinnerDriverID: row.WinnerDriverID,
			LoserDriverID:  row.LoserDriverID,
			CreatedAt:      row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) ResetRegion(ctx context.Context, region string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("region = ?", region).Delete(&runningRatingModel{}).Error; err != nil {
			return r.logError("rating_repo_reset_running_failed", err, "region", region)
		}
		if err := tx.Where("region = ?", region).Delete(&historyModel{}).Error; err != nil {
			return r.logError("rating_repo_reset_history_failed", err, "region", region)
		}
		return nil
	})
}

func (r *Repository) SaveStep(ctx context.Context, ratings []entities.RunningRating, history []entities.RatingHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rating := range ratings {
			row := runningRatingModel{
				DriverID:       rating.DriverID,
				Region:         rating.Region,
				Value:          rating.Value,
				CountedBattles: rating.CountedBattles,
				LastBattleAt:   rating.LastBattleAt,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "driver_id"}, {Name: "region"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "counted_battles", "last_battle_at"}),
			}).Create(&row).Error
			if err != nil {
				return r.logError("rating_repo_save_running_failed", err, "driver_id", rating.DriverID)
			}
		}
		if len(history) == 0 {
			return nil
		}
		rows := make([]historyModel, 0, len(history))
		for _, item := range history {
			rows = append(rows, historyModel{
				HistoryID:    item.HistoryID,
				DriverID:     item.DriverID,
				Region:       item.Region,
				BattleID:     item.BattleID,
				TournamentID: item.TournamentID,
				Before:       item.Before,
				Decayed:      item.Decayed,
				After:        item.After,
				RecordedAt:   item.RecordedAt.UTC(),
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return r.logError("rating_repo_save_history_failed", err)
		}
		return nil
	})
}

// WriteDriverRatings replaces the region's permanent ratings in one
// transaction.
func (r *Repository) WriteDriverRatings(ctx context.Context, region string, ratings []entities.DriverRating) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("region = ?", region).Delete(&driverRatingModel{}).Error; err != nil {
			return r.logError("rating_repo_clear_ratings_failed", err, "region", region)
		}
		if len(ratings) == 0 {
			return nil
		}
		rows := make([]driverRatingModel, 0, len(ratings))
		for _, item := range ratings {
			rows = append(rows, driverRatingModel{
				DriverID:     item.DriverID,
				Region:       region,
				Rating:       item.Rating,
				TotalBattles: item.TotalBattles,
				LastBattleAt: item.LastBattleAt,
				UpdatedAt:    item.UpdatedAt.UTC(),
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return r.logError("rating_repo_write_ratings_failed", err, "region", region)
		}
		return nil
	})
}

func (r *Repository) ListDriverRatings(ctx context.Context, region string) ([]entities.DriverRating, error) {
	var rows []driverRatingModel
	err := r.db.WithContext(ctx).
		Where("region = ?", region).
		Order("rating DESC, driver_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("rating_repo_list_ratings_failed", err, "region", region)
	}
	items := make([]entities.DriverRating, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.DriverRating{
			DriverID:     row.DriverID,
			Region:       row.Region,
			Rating:       row.Rating,
			TotalBattles: row.TotalBattles,
			LastBattleAt: row.LastBattleAt,
			UpdatedAt:    row.UpdatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) ListHistory(ctx context.Context, region string, driverID string) ([]entities.RatingHistory, error) {
	query := r.db.WithContext(ctx).Where("region = ?", region)
	if driverID = strings.TrimSpace(driverID); driverID != "" {
		query = query.Where("driver_id = ?", driverID)
	}
	var rows []historyModel
	if err := query.Order("recorded_at ASC, battle_id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("rating_repo_list_history_failed", err, "region", region, "driver_id", driverID)
	}
	items := make([]entities.RatingHistory, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.RatingHistory{
			HistoryID:    row.HistoryID,
			DriverID:     row.DriverID,
			Region:       row.Region,
			BattleID:     row.BattleID,
			TournamentID: row.TournamentID,
			Before:       row.Before,
			Decayed:      row.Decayed,
			After:        row.After,
			RecordedAt:   row.RecordedAt.UTC(),
		})
	}
	return items, nil
}

// AcquireLease inserts the region lease, or takes it over when it has expired
// or already belongs to owner.
func (r *Repository) AcquireLease(ctx context.Context, region string, owner string, ttl time.Duration, now time.Time) (bool, error) {
	row := leaseModel{
		Region:    region,
		Owner:     owner,
		ExpiresAt: now.Add(ttl).UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "region"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner", "expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("rating_leases.expires_at <= ? OR rating_leases.owner = ?", now.UTC(), owner),
		}},
	}).Create(&row)
	if result.Error != nil {
		return false, r.logError("rating_repo_acquire_lease_failed", result.Error, "region", region)
	}
	return result.RowsAffected == 1, nil
}

// RenewLease pushes the expiry forward. A lease taken over or released in the
// meantime matches no row.
func (r *Repository) RenewLease(ctx context.Context, region string, owner string, ttl time.Duration, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&leaseModel{}).
		Where("region = ? AND owner = ?", region, owner).
		Update("expires_at", now.Add(ttl).UTC())
	if result.Error != nil {
		return false, r.logError("rating_repo_renew_lease_failed", result.Error, "region", region)
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) ReleaseLease(ctx context.Context, region string, owner string) error {
	err := r.db.WithContext(ctx).
		Where("region = ? AND owner = ?", region, owner).
		Delete(&leaseModel{}).Error
	if err != nil {
		return r.logError("rating_repo_release_lease_failed", err, "region", region)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "competition/rating-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("rating repository operation failed", fields...)
	return err
}

type ratedBattleRow struct {
	BattleID       int64     `gorm:"column:battle_id"`
	TournamentID   string    `gorm:"column:tournament_id"`
	Region         string    `gorm:"column:region"`
	IsFinal        bool      `gorm:"column:is_final"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	WinnerDriverID string    `gorm:"column:winner_driver_id"`
	LoserDriverID  string    `gorm:"column:loser_driver_id"`
}

type runningRatingModel struct {
	DriverID       string     `gorm:"column:driver_id;primaryKey"`
	Region         string     `gorm:"column:region;primaryKey"`
	Value          float64    `gorm:"column:value"`
	CountedBattles int        `gorm:"column:counted_battles"`
	LastBattleAt   *time.Time `gorm:"column:last_battle_at"`
}

func (runningRatingModel) TableName() string {
	return "rating_running"
}

type historyModel struct {
	HistoryID    string    `gorm:"column:history_id;primaryKey"`
	DriverID     string    `gorm:"column:driver_id;index:rating_history_driver_idx"`
	Region       string    `gorm:"column:region;index:rating_history_driver_idx"`
	BattleID     int64     `gorm:"column:battle_id"`
	TournamentID string    `gorm:"column:tournament_id"`
	Before       float64   `gorm:"column:before_rating"`
	Decayed      float64   `gorm:"column:decayed_rating"`
	After        float64   `gorm:"column:after_rating"`
	RecordedAt   time.Time `gorm:"column:recorded_at"`
}

func (historyModel) TableName() string {
	return "rating_history"
}

type driverRatingModel struct {
	DriverID     string     `gorm:"column:driver_id;primaryKey"`
	Region       string     `gorm:"column:region;primaryKey"`
	Rating       float64    `gorm:"column:rating"`
	TotalBattles int        `gorm:"column:total_battles"`
	LastBattleAt *time.Time `gorm:"column:last_battle_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (driverRatingModel) TableName() string {
	return "driver_ratings"
}

type leaseModel struct {
	Region    string    `gorm:"column:region;primaryKey"`
	Owner     string    `gorm:"column:owner"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}

func (leaseModel) TableName() string {
	return "rating_leases"
}

var _ ports.BattleSource = (*Repository)(nil)
var _ ports.RatingStore = (*Repository)(nil)
var _ ports.LeaseManager = (*Repository)(nil)

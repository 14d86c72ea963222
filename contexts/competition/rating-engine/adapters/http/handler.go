package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "tandem/contexts/competition/rating-engine/application"
	"tandem/contexts/competition/rating-engine/domain/entities"
	httptransport "tandem/contexts/competition/rating-engine/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) RunBatchHandler(ctx context.Context, region string) (httptransport.RunBatchResponse, error) {
	report, err := h.Service.RunBatch(ctx, region)
	if err != nil {
		return httptransport.RunBatchResponse{}, err
	}
	return httptransport.RunBatchResponse{
		Region:     report.Region,
		Processed:  report.Processed,
		Skipped:    report.Skipped,
		Drivers:    report.Drivers,
		StartedAt:  report.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: report.FinishedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) LeaderboardHandler(ctx context.Context, region string, limit int) (httptransport.LeaderboardResponse, error) {
	items, err := h.Service.Leaderboard(ctx, region, limit)
	if err != nil {
		return httptransport.LeaderboardResponse{}, err
	}
	response := httptransport.LeaderboardResponse{
		Region: entities.NormalizeRegion(region),
		Items:  make([]httptransport.DriverRatingDTO, 0, len(items)),
	}
	for index, item := range items {
		response.Items = append(response.Items, httptransport.DriverRatingDTO{
			Rank:         index + 1,
			DriverID:     item.DriverID,
			Region:       item.Region,
			Rating:       item.Rating,
			TotalBattles: item.TotalBattles,
			LastBattleAt: formatOptionalTime(item.LastBattleAt),
			UpdatedAt:    item.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return response, nil
}

func (h Handler) DriverHistoryHandler(ctx context.Context, region string, driverID string) (httptransport.DriverHistoryResponse, error) {
	items, err := h.Service.DriverHistory(ctx, region, driverID)
	if err != nil {
		return httptransport.DriverHistoryResponse{}, err
	}
	response := httptransport.DriverHistoryResponse{
		DriverID: driverID,
		Region:   entities.NormalizeRegion(region),
		Items:    make([]httptransport.RatingHistoryDTO, 0, len(items)),
	}
	for _, item := range items {
		response.Items = append(response.Items, httptransport.RatingHistoryDTO{
			BattleID:     item.BattleID,
			TournamentID: item.TournamentID,
			Before:       item.Before,
			Decayed:      item.Decayed,
			After:        item.After,
			RecordedAt:   item.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	return response, nil
}

func formatOptionalTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339)
	return &formatted
}

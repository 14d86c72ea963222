package services

import (
	"testing"

	"tandem/contexts/competition/tournament-engine/domain/entities"
)

func TestRankQualifyingComparesBestLapsInOrder(t *testing.T) {
	competitors := []entities.Competitor{
		{CompetitorID: 1},
		{CompetitorID: 2},
		{CompetitorID: 3},
	}
	laps := []entities.Lap{
		{LapID: 10, CompetitorID: 1},
		{LapID: 11, CompetitorID: 1},
		{LapID: 20, CompetitorID: 2},
		{LapID: 21, CompetitorID: 2},
		{LapID: 30, CompetitorID: 3},
		{LapID: 31, CompetitorID: 3},
	}
	totals := map[int64]float64{
		10: 80, 11: 70,
		20: 90, 21: 60,
		30: 90, 31: 65,
	}

	results := RankQualifying(competitors, laps, totals)
	want := []int64{3, 2, 1}
	for i, id := range want {
		if results[i].CompetitorID != id || results[i].Position != i+1 {
			t.Fatalf("position %d: expected competitor %d, got %+v", i+1, id, results[i])
		}
	}
}

func TestRankQualifyingTieBreaksOnCompetitorID(t *testing.T) {
	competitors := []entities.Competitor{{CompetitorID: 7}, {CompetitorID: 3}}
	laps := []entities.Lap{{LapID: 1, CompetitorID: 7}, {LapID: 2, CompetitorID: 3}}
	results := RankQualifying(competitors, laps, map[int64]float64{1: 50, 2: 50})
	if results[0].CompetitorID != 3 {
		t.Fatalf("expected lower competitor id first, got %+v", results)
	}
}

func TestRankQualifyingSkipsByesAndSortsUnscoredLast(t *testing.T) {
	competitors := []entities.Competitor{
		{CompetitorID: 1},
		{CompetitorID: 2},
		{CompetitorID: 3, IsBye: true},
	}
	laps := []entities.Lap{
		{LapID: 1, CompetitorID: 1},
		{LapID: 2, CompetitorID: 2},
	}
	results := RankQualifying(competitors, laps, map[int64]float64{2: 10})
	if len(results) != 2 {
		t.Fatalf("expected byes to be excluded, got %d results", len(results))
	}
	if results[0].CompetitorID != 2 || results[1].CompetitorID != 1 {
		t.Fatalf("expected scored competitor first, got %+v", results)
	}
	if len(results[1].BestScores) != 0 {
		t.Fatalf("expected no scores for competitor without complete laps")
	}
}

func TestRankQualifyingUsesOnlyTopThreeLaps(t *testing.T) {
	competitors := []entities.Competitor{{CompetitorID: 1}, {CompetitorID: 2}}
	laps := []entities.Lap{
		{LapID: 1, CompetitorID: 1}, {LapID: 2, CompetitorID: 1},
		{LapID: 3, CompetitorID: 1}, {LapID: 4, CompetitorID: 1},
		{LapID: 5, CompetitorID: 2}, {LapID: 6, CompetitorID: 2},
		{LapID: 7, CompetitorID: 2}, {LapID: 8, CompetitorID: 2},
	}
	totals := map[int64]float64{
		1: 90, 2: 80, 3: 70, 4: 10,
		5: 90, 6: 80, 7: 70, 8: 60,
	}
	results := RankQualifying(competitors, laps, totals)
	if results[0].CompetitorID != 1 {
		t.Fatalf("expected fourth lap to be ignored and id to break the tie, got %+v", results)
	}
	if len(results[1].BestScores) != 3 {
		t.Fatalf("expected three ranked scores, got %v", results[1].BestScores)
	}
}

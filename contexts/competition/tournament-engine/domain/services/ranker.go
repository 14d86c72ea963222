package services

import (
	"sort"

	"tandem/contexts/competition/tournament-engine/domain/entities"
)

// rankedLaps is how many of a competitor's best laps take part in ordering.
const rankedLaps = 3

type QualifyingResult struct {
	CompetitorID int64
	Position     int
	BestScores   []float64
}

// RankQualifying orders non-bye competitors by their best, second and third
// lap totals (desc), then by competitor id (asc). Competitors without a
// complete lap sort last.
func RankQualifying(
	competitors []entities.Competitor,
	laps []entities.Lap,
	totals map[int64]float64,
) []QualifyingResult {
	scoresByCompetitor := make(map[int64][]float64)
	for _, lap := range laps {
		if total, ok := totals[lap.LapID]; ok {
			scoresByCompetitor[lap.CompetitorID] = append(scoresByCompetitor[lap.CompetitorID], total)
		}
	}

	results := make([]QualifyingResult, 0, len(competitors))
	for _, competitor := range competitors {
		if competitor.IsBye {
			continue
		}
		scores := append([]float64(nil), scoresByCompetitor[competitor.CompetitorID]...)
		sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
		if len(scores) > rankedLaps {
			scores = scores[:rankedLaps]
		}
		results = append(results, QualifyingResult{
			CompetitorID: competitor.CompetitorID,
			BestScores:   scores,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		left, right := results[i], results[j]
		for k := 0; k < rankedLaps; k++ {
			lHas, rHas := k < len(left.BestScores), k < len(right.BestScores)
			switch {
			case lHas && !rHas:
				return true
			case !lHas && rHas:
				return false
			case lHas && rHas && left.BestScores[k] != right.BestScores[k]:
				return left.BestScores[k] > right.BestScores[k]
			}
		}
		return left.CompetitorID < right.CompetitorID
	})

	for i := range results {
		results[i].Position = i + 1
	}
	return results
}

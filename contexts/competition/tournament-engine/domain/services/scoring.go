package services

import "tandem/contexts/competition/tournament-engine/domain/entities"

// LapTotal combines one lap's judge scores under formula. The second result is
// false until exactly one score per judge exists.
func LapTotal(
	scores []entities.LapScore,
	penalty float64,
	formula entities.ScoreFormula,
	judgeCount int,
) (float64, bool) {
	if judgeCount <= 0 || len(scores) != judgeCount {
		return 0, false
	}
	seen := make(map[string]struct{}, len(scores))
	sum := 0.0
	for _, score := range scores {
		if _, dup := seen[score.JudgeID]; dup {
			return 0, false
		}
		seen[score.JudgeID] = struct{}{}
		sum += score.Score
	}

	total := sum
	if formula == entities.ScoreFormulaAverage {
		total = sum / float64(judgeCount)
	}
	total -= penalty
	if floor := formula.Minimum(); total < floor {
		total = floor
	}
	return total, true
}

// LapTotals evaluates every lap and returns the totals of complete laps only.
func LapTotals(
	laps []entities.Lap,
	scores []entities.LapScore,
	formula entities.ScoreFormula,
	judgeCount int,
) map[int64]float64 {
	byLap := make(map[int64][]entities.LapScore, len(laps))
	for _, score := range scores {
		byLap[score.LapID] = append(byLap[score.LapID], score)
	}
	totals := make(map[int64]float64, len(laps))
	for _, lap := range laps {
		if total, ok := LapTotal(byLap[lap.LapID], lap.Penalty, formula, judgeCount); ok {
			totals[lap.LapID] = total
		}
	}
	return totals
}

// NextQualifyingLap picks the incomplete lap with the lowest (competitor id, lap id).
func NextQualifyingLap(laps []entities.Lap, totals map[int64]float64) *int64 {
	var next *entities.Lap
	for i := range laps {
		lap := laps[i]
		if _, done := totals[lap.LapID]; done {
			continue
		}
		if next == nil ||
			lap.CompetitorID < next.CompetitorID ||
			(lap.CompetitorID == next.CompetitorID && lap.LapID < next.LapID) {
			next = &laps[i]
		}
	}
	if next == nil {
		return nil
	}
	return entities.Int64Ptr(next.LapID)
}

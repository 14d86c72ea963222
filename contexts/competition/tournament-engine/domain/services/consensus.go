package services

import "tandem/contexts/competition/tournament-engine/domain/entities"

type ConsensusStatus string

const (
	ConsensusNotReady ConsensusStatus = "NOT_READY"
	ConsensusWinner   ConsensusStatus = "WINNER"
	ConsensusTie      ConsensusStatus = "TIE"
)

type Consensus struct {
	Status     ConsensusStatus
	WinnerID   int64
	LeftVotes  int
	RightVotes int
	TieVotes   int
}

// MajorityThreshold is floor(n/2)+1 for every judge count.
func MajorityThreshold(judgeCount int) int {
	return judgeCount/2 + 1
}

// ResolveConsensus decides a seated battle from its votes. The latest vote of
// each judge counts once.
func ResolveConsensus(battle entities.Battle, votes []entities.BattleVote, judgeCount int) Consensus {
	latest := make(map[string]entities.BattleVote, len(votes))
	for _, vote := range votes {
		if vote.BattleID != battle.BattleID {
			continue
		}
		current, seen := latest[vote.JudgeID]
		if !seen || !vote.UpdatedAt.Before(current.UpdatedAt) {
			latest[vote.JudgeID] = vote
		}
	}
	if judgeCount <= 0 || len(latest) != judgeCount || !battle.Seated() {
		return Consensus{Status: ConsensusNotReady}
	}

	result := Consensus{}
	for _, vote := range latest {
		switch {
		case vote.Choice == entities.VoteChoiceTie || vote.CompetitorID == nil:
			result.TieVotes++
		case *vote.CompetitorID == *battle.LeftCompetitorID:
			result.LeftVotes++
		case *vote.CompetitorID == *battle.RightCompetitorID:
			result.RightVotes++
		default:
			result.TieVotes++
		}
	}

	threshold := MajorityThreshold(judgeCount)
	switch {
	case result.LeftVotes >= threshold:
		result.Status = ConsensusWinner
		result.WinnerID = *battle.LeftCompetitorID
	case result.RightVotes >= threshold:
		result.Status = ConsensusWinner
		result.WinnerID = *battle.RightCompetitorID
	default:
		result.Status = ConsensusTie
	}
	return result
}

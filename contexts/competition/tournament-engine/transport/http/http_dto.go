package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateTournamentRequest struct {
	Name           string `json:"name"`
	Region         string `json:"region"`
	Format         string `json:"format"`
	QualifyingLaps int    `json:"qualifying_laps"`
	ScoreFormula   string `json:"score_formula"`
	BracketSize    int    `json:"bracket_size"`
	FullInclusion  bool   `json:"full_inclusion"`
	IsFinal        bool   `json:"is_final"`
	Numbering      string `json:"numbering"`
}

type TournamentDTO struct {
	TournamentID        string `json:"tournament_id"`
	Name                string `json:"name"`
	Region              string `json:"region"`
	Format              string `json:"format"`
	State               string `json:"state"`
	QualifyingLaps      int    `json:"qualifying_laps"`
	ScoreFormula        string `json:"score_formula"`
	BracketSize         int    `json:"bracket_size,omitempty"`
	FullInclusion       bool   `json:"full_inclusion"`
	IsFinal             bool   `json:"is_final"`
	Numbering           string `json:"numbering"`
	NextQualifyingLapID *int64 `json:"next_qualifying_lap_id"`
	NextBattleID        *int64 `json:"next_battle_id"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

type TournamentResponse struct {
	Tournament TournamentDTO `json:"tournament"`
}

type ListTournamentsResponse struct {
	Items []TournamentDTO `json:"items"`
}

type RegisterCompetitorRequest struct {
	DriverID string `json:"driver_id"`
	Number   int    `json:"number"`
}

type CompetitorDTO struct {
	CompetitorID       int64     `json:"competitor_id"`
	DriverID           string    `json:"driver_id,omitempty"`
	IsBye              bool      `json:"is_bye"`
	QualifyingPosition *int      `json:"qualifying_position"`
	Number             int       `json:"number,omitempty"`
	BestScores         []float64 `json:"best_scores,omitempty"`
}

type CompetitorResponse struct {
	Competitor CompetitorDTO `json:"competitor"`
}

type AddJudgeRequest struct {
	Name     string `json:"name"`
	DriverID string `json:"driver_id"`
}

type JudgeDTO struct {
	JudgeID  string `json:"judge_id"`
	Name     string `json:"name"`
	DriverID string `json:"driver_id,omitempty"`
}

type JudgeResponse struct {
	Judge JudgeDTO `json:"judge"`
}

type SubmitLapScoreRequest struct {
	JudgeID string  `json:"judge_id"`
	Score   float64 `json:"score"`
}

type LapScoreResponse struct {
	LapID               int64   `json:"lap_id"`
	Complete            bool    `json:"complete"`
	Total               float64 `json:"total,omitempty"`
	NextQualifyingLapID *int64  `json:"next_qualifying_lap_id"`
}

type SetLapPenaltyRequest struct {
	Penalty float64 `json:"penalty"`
}

type LapDTO struct {
	LapID        int64   `json:"lap_id"`
	CompetitorID int64   `json:"competitor_id"`
	Round        int     `json:"round"`
	Penalty      float64 `json:"penalty"`
	ScoreCount   int     `json:"score_count"`
	Complete     bool    `json:"complete"`
	Total        float64 `json:"total,omitempty"`
}

type LapResponse struct {
	Lap LapDTO `json:"lap"`
}

type AdvanceQualifyingResponse struct {
	NextQualifyingLapID *int64 `json:"next_qualifying_lap_id"`
}

type EndQualifyingRequest struct {
	Force bool `json:"force"`
}

type RankingEntryDTO struct {
	CompetitorID int64     `json:"competitor_id"`
	Position     int       `json:"position"`
	BestScores   []float64 `json:"best_scores"`
}

type EndQualifyingResponse struct {
	Tournament   TournamentDTO     `json:"tournament"`
	Ranking      []RankingEntryDTO `json:"ranking"`
	BracketSize  int               `json:"bracket_size"`
	ByeCount     int               `json:"bye_count"`
	AutoResolved []int64           `json:"auto_resolved"`
}

type SubmitBattleVoteRequest struct {
	JudgeID string `json:"judge_id"`
	// CompetitorID is omitted or null for a tie vote.
	CompetitorID *int64 `json:"competitor_id"`
}

type BattleVoteDTO struct {
	JudgeID      string `json:"judge_id"`
	BattleID     int64  `json:"battle_id"`
	Choice       string `json:"choice"`
	CompetitorID *int64 `json:"competitor_id"`
}

type BattleVoteResponse struct {
	Vote BattleVoteDTO `json:"vote"`
}

type AdvanceBattleResponse struct {
	TournamentID string  `json:"tournament_id"`
	BattleID     int64   `json:"battle_id"`
	Outcome      string  `json:"outcome"`
	WinnerID     *int64  `json:"winner_id,omitempty"`
	LeftVotes    int     `json:"left_votes"`
	RightVotes   int     `json:"right_votes"`
	TieVotes     int     `json:"tie_votes"`
	NextBattleID *int64  `json:"next_battle_id"`
	State        string  `json:"state"`
	AutoResolved []int64 `json:"auto_resolved,omitempty"`
	Replayed     bool    `json:"replayed"`
}

type OverrideNextBattleRequest struct {
	BattleID int64 `json:"battle_id"`
}

type AssignWildcardRequest struct {
	DriverID string `json:"driver_id"`
	Number   int    `json:"number"`
}

type BattleDTO struct {
	BattleID           int64  `json:"battle_id"`
	Round              int    `json:"round"`
	Bracket            string `json:"bracket"`
	LeftCompetitorID   *int64 `json:"left_competitor_id"`
	RightCompetitorID  *int64 `json:"right_competitor_id"`
	WinnerID           *int64 `json:"winner_id"`
	WinnerNextBattleID *int64 `json:"winner_next_battle_id"`
	LoserNextBattleID  *int64 `json:"loser_next_battle_id"`
	VoteCount          int    `json:"vote_count"`
	ResolvedAt         string `json:"resolved_at,omitempty"`
}

type TournamentStateResponse struct {
	Tournament  TournamentDTO   `json:"tournament"`
	JudgeCount  int             `json:"judge_count"`
	Judges      []JudgeDTO      `json:"judges"`
	Competitors []CompetitorDTO `json:"competitors"`
	Laps        []LapDTO        `json:"laps"`
	Battles     []BattleDTO     `json:"battles"`
}

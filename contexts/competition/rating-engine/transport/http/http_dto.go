package http

type RunBatchResponse struct {
	Region     string `json:"region"`
	Processed  int    `json:"processed"`
	Skipped    int    `json:"skipped"`
	Drivers    int    `json:"drivers"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

type DriverRatingDTO struct {
	Rank         int     `json:"rank"`
	DriverID     string  `json:"driver_id"`
	Region       string  `json:"region"`
	Rating       float64 `json:"rating"`
	TotalBattles int     `json:"total_battles"`
	LastBattleAt *string `json:"last_battle_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type LeaderboardResponse struct {
	Region string            `json:"region"`
	Items  []DriverRatingDTO `json:"items"`
}

type RatingHistoryDTO struct {
	BattleID     int64   `json:"battle_id"`
	TournamentID string  `json:"tournament_id"`
	Before       float64 `json:"before"`
	Decayed      float64 `json:"decayed"`
	After        float64 `json:"after"`
	RecordedAt   string  `json:"recorded_at"`
}

type DriverHistoryResponse struct {
	DriverID string             `json:"driver_id"`
	Region   string             `json:"region"`
	Items    []RatingHistoryDTO `json:"items"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

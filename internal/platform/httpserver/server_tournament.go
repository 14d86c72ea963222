package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	tournamenterrors "tandem/contexts/competition/tournament-engine/domain/errors"
	tournamenthttp "tandem/contexts/competition/tournament-engine/transport/http"
)

func (s *Server) registerTournamentRoutes() {
	s.mux.HandleFunc("POST /v1/tournaments", s.handleCreateTournament)
	s.mux.HandleFunc("GET /v1/tournaments", s.handleListTournaments)
	s.mux.HandleFunc("GET /v1/tournaments/{tournament_id}", s.handleGetTournamentState)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/registration/open", s.handleOpenRegistration)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/competitors", s.handleRegisterCompetitor)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/judges", s.handleAddJudge)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/qualifying/start", s.handleStartQualifying)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/qualifying/advance", s.handleAdvanceQualifying)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/qualifying/end", s.handleEndQualifying)
	s.mux.HandleFunc("PUT /v1/tournaments/{tournament_id}/laps/{lap_id}/scores", s.handleSubmitLapScore)
	s.mux.HandleFunc("PUT /v1/tournaments/{tournament_id}/laps/{lap_id}/penalty", s.handleSetLapPenalty)
	s.mux.HandleFunc("PUT /v1/tournaments/{tournament_id}/battles/{battle_id}/votes", s.handleSubmitBattleVote)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/battles/advance", s.handleAdvanceBattle)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/battles/next", s.handleOverrideNextBattle)
	s.mux.HandleFunc("POST /v1/tournaments/{tournament_id}/wildcard", s.handleAssignWildcard)
}

func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamenthttp.CreateTournamentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.tournaments.Handler.CreateTournamentHandler(r.Context(), req)
	if err != nil {
		s.writeTournamentDomainError(w, err)
		return
	}
	s.publishState(r.Context(), resp.Tournament.TournamentID)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resp, err := s.tournaments.Handler.ListTournamentsHandler(r.Context(), query.Get("region"), query.Get("state"))
	if err != nil {
		s.writeTournamentDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTournamentState(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tournaments.Handler.GetStateHandler(r.Context(), r.PathValue("tournament_id"))
	if err != nil {
		s.writeTournamentDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenRegistration(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.OpenRegistrationHandler(r.Context(), tournamentID)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleRegisterCompetitor(w http.ResponseWriter, r *http.Request) {
	var req tournamenthttp.RegisterCompetitorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.RegisterCompetitorHandler(r.Context(), tournamentID, req)
	s.respondTournament(w, r, tournamentID, http.StatusCreated, resp, err)
}

func (s *Server) handleAddJudge(w http.ResponseWriter, r *http.Request) {
	var req tournamenthttp.AddJudgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.AddJudgeHandler(r.Context(), tournamentID, req)
	s.respondTournament(w, r, tournamentID, http.StatusCreated, resp, err)
}

func (s *Server) handleStartQualifying(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.StartQualifyingHandler(r.Context(), tournamentID)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleAdvanceQualifying(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.AdvanceQualifyingHandler(r.Context(), tournamentID)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleEndQualifying(w http.ResponseWriter, r *http.Request) {
	var req tournamenthttp.EndQualifyingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if force := r.URL.Query().Get("force"); force != "" {
		parsed, err := strconv.ParseBool(force)
		if err != nil {
			writeTournamentError(w, http.StatusBadRequest, "invalid_force", "force must be a boolean")
			return
		}
		req.Force = parsed
	}
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.EndQualifyingHandler(r.Context(), tournamentID, req)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleSubmitLapScore(w http.ResponseWriter, r *http.Request) {
	lapID, ok := parseIDParam(w, r, "lap_id")
	if !ok {
		return
	}
	var req tournamenthttp.SubmitLapScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.SubmitLapScoreHandler(r.Context(), tournamentID, lapID, req)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleSetLapPenalty(w http.ResponseWriter, r *http.Request) {
	lapID, ok := parseIDParam(w, r, "lap_id")
	if !ok {
		return
	}
	var req tournamenthttp.SetLapPenaltyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.SetLapPenaltyHandler(r.Context(), tournamentID, lapID, req)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleSubmitBattleVote(w http.ResponseWriter, r *http.Request) {
	battleID, ok := parseIDParam(w, r, "battle_id")
	if !ok {
		return
	}
	var req tournamenthttp.SubmitBattleVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.SubmitBattleVoteHandler(r.Context(), tournamentID, battleID, req)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleAdvanceBattle(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.AdvanceBattleHandler(r.Context(), tournamentID, r.Header.Get("Idempotency-Key"))
	if err == nil && resp.Replayed {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleOverrideNextBattle(w http.ResponseWriter, r *http.Request) {
	var req tournamenthttp.OverrideNextBattleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.OverrideNextBattleHandler(r.Context(), tournamentID, req)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

func (s *Server) handleAssignWildcard(w http.ResponseWriter, r *http.Request) {
	var req tournamenthttp.AssignWildcardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTournamentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	tournamentID := r.PathValue("tournament_id")
	resp, err := s.tournaments.Handler.AssignWildcardHandler(r.Context(), tournamentID, req)
	s.respondTournament(w, r, tournamentID, http.StatusOK, resp, err)
}

// respondTournament writes a mutating command's result and, on success,
// pushes the new tournament state to live subscribers.
func (s *Server) respondTournament(w http.ResponseWriter, r *http.Request, tournamentID string, status int, resp any, err error) {
	if err != nil {
		s.writeTournamentDomainError(w, err)
		return
	}
	s.publishState(r.Context(), tournamentID)
	writeJSON(w, status, resp)
}

func (s *Server) publishState(ctx context.Context, tournamentID string) {
	if s.live == nil || tournamentID == "" {
		return
	}
	state, err := s.tournaments.Handler.GetStateHandler(ctx, tournamentID)
	if err != nil {
		s.logger.Warn("live state load failed",
			"event", "http_live_state_load_failed",
			"module", "internal/platform/httpserver",
			"layer", "transport",
			"tournament_id", tournamentID,
			"error", err.Error(),
		)
		return
	}
	s.live.PublishTournament(tournamentID, state)
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || value <= 0 {
		writeTournamentError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return value, true
}

func (s *Server) writeTournamentDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tournamenterrors.ErrTournamentNotFound),
		errors.Is(err, tournamenterrors.ErrCompetitorNotFound),
		errors.Is(err, tournamenterrors.ErrLapNotFound),
		errors.Is(err, tournamenterrors.ErrBattleNotFound),
		errors.Is(err, tournamenterrors.ErrJudgeNotFound):
		writeTournamentError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, tournamenterrors.ErrIdempotencyKeyRequired):
		writeTournamentError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, tournamenterrors.ErrIdempotencyConflict):
		writeTournamentError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, tournamenterrors.ErrConflict),
		errors.Is(err, tournamenterrors.ErrAlreadyRegistered),
		errors.Is(err, tournamenterrors.ErrPositionAlreadyAssigned):
		writeTournamentError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, tournamenterrors.ErrInvalidTransition),
		errors.Is(err, tournamenterrors.ErrQualifyingIncomplete),
		errors.Is(err, tournamenterrors.ErrVotesIncomplete),
		errors.Is(err, tournamenterrors.ErrBattleNotCurrent),
		errors.Is(err, tournamenterrors.ErrBattleNotReady),
		errors.Is(err, tournamenterrors.ErrBattleAlreadyResolved),
		errors.Is(err, tournamenterrors.ErrDownstreamResolved),
		errors.Is(err, tournamenterrors.ErrNoCurrentBattle),
		errors.Is(err, tournamenterrors.ErrWildcardUnavailable):
		writeTournamentError(w, http.StatusConflict, "invalid_state", err.Error())
	case tournamenterrors.IsValidation(err):
		writeTournamentError(w, http.StatusUnprocessableEntity, "invalid_request", err.Error())
	default:
		s.logger.Error("tournament request failed",
			"event", "http_tournament_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "transport",
			"error", err.Error(),
		)
		writeTournamentError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTournamentError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tournamenthttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

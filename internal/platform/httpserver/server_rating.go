package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	ratingerrors "tandem/contexts/competition/rating-engine/domain/errors"
	ratinghttp "tandem/contexts/competition/rating-engine/transport/http"
)

func (s *Server) registerRatingRoutes() {
	s.mux.HandleFunc("POST /v1/ratings/{region}/batch", s.handleRunRatingBatch)
	s.mux.HandleFunc("GET /v1/ratings/{region}", s.handleRatingLeaderboard)
	s.mux.HandleFunc("GET /v1/ratings/{region}/drivers/{driver_id}/history", s.handleRatingHistory)
}

func (s *Server) handleRunRatingBatch(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ratings.Handler.RunBatchHandler(r.Context(), r.PathValue("region"))
	if err != nil {
		s.writeRatingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRatingLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeRatingError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	resp, err := s.ratings.Handler.LeaderboardHandler(r.Context(), r.PathValue("region"), limit)
	if err != nil {
		s.writeRatingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRatingHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ratings.Handler.DriverHistoryHandler(r.Context(), r.PathValue("region"), r.PathValue("driver_id"))
	if err != nil {
		s.writeRatingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeRatingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ratingerrors.ErrInvalidRegion):
		writeRatingError(w, http.StatusBadRequest, "invalid_region", err.Error())
	case errors.Is(err, ratingerrors.ErrBatchAlreadyRunning):
		writeRatingError(w, http.StatusConflict, "batch_already_running", err.Error())
	case errors.Is(err, ratingerrors.ErrLeaseLost):
		writeRatingError(w, http.StatusConflict, "batch_lease_lost", err.Error())
	case errors.Is(err, ratingerrors.ErrRatingNotFound):
		writeRatingError(w, http.StatusNotFound, "rating_not_found", err.Error())
	default:
		s.logger.Error("rating request failed",
			"event", "http_rating_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "transport",
			"error", err.Error(),
		)
		writeRatingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRatingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ratinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

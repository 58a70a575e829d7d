package httpapi

import (
	"net/http"
	"strconv"

	"github.com/mapfarena/verifier/internal/apperr"
)

const defaultLeaderboardLimit = 100

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	mapName := r.URL.Query().Get("map_name")
	if mapName == "" {
		writeError(w, apperr.BadRequest("map_name is required"))
		return
	}
	scenarioName := r.URL.Query().Get("scenario_name")

	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperr.BadRequest("limit must be an integer"))
			return
		}
		limit = parsed
	}

	rows, err := s.leaderboard.Leaderboard(r.Context(), mapName, scenarioName, limit)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindDatabase, "query leaderboard", err))
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

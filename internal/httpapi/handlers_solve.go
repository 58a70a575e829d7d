package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mapfarena/verifier/internal/apperr"
	"github.com/mapfarena/verifier/internal/coordinator"
	"github.com/mapfarena/verifier/internal/mapgrid"
)

func (s *Server) buildProblem(m MapDTO, starts, goals []CoordinateDTO) (coordinator.Problem, error) {
	grid, err := mapgrid.FromBytes(m.Width, m.Height, m.Tiles)
	if err != nil {
		return coordinator.Problem{}, apperr.BadRequest("invalid map: %s", err.Error())
	}
	if len(starts) != len(goals) {
		return coordinator.Problem{}, apperr.BadRequest("starts and goals must have the same length, got %d and %d", len(starts), len(goals))
	}
	return coordinator.Problem{Grid: grid, Starts: coordinates(starts), Goals: coordinates(goals)}, nil
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.BadRequest("malformed JSON body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, apperr.BadRequest("invalid request: %s", err.Error()))
		return
	}

	problem, err := s.buildProblem(req.Map, req.Starts, req.Goals)
	if err != nil {
		writeError(w, err)
		return
	}

	outcome, err := s.coordinator.Verify(r.Context(), coordinator.VerifyRequest{
		ModuleBytes: req.WasmBytes,
		Problem:     problem,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Auth("missing authenticated user"))
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.BadRequest("malformed JSON body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, apperr.BadRequest("invalid request: %s", err.Error()))
		return
	}

	problem, err := s.buildProblem(req.Map, req.Starts, req.Goals)
	if err != nil {
		writeError(w, err)
		return
	}

	outcome, err := s.coordinator.Submit(r.Context(), coordinator.SubmitRequest{
		UserID:      userID,
		SolverName:  req.SolverName,
		MapName:     req.MapName,
		ScenarioID:  req.ScenarioID,
		ModuleBytes: req.WasmBytes,
		Problem:     problem,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

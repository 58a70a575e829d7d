package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mapfarena/verifier/internal/apperr"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.BadRequest("malformed JSON body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, apperr.BadRequest("invalid request: %s", err.Error()))
		return
	}

	userID, err := s.users.CreateUser(r.Context(), req.Username)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindDatabase, "create user", err))
		return
	}

	created, err := s.authService.IssueKey(r.Context(), userID, 0)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, "issue api key", err))
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		UserID:   userID.String(),
		Username: req.Username,
		APIKey:   created.PlainKey,
	})
}

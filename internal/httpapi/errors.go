package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mapfarena/verifier/internal/apperr"
)

// statusForKind maps an apperr.Kind to the HTTP status §6/§7 specify.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindBadRequest, apperr.KindValidation, apperr.KindSandbox:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDatabase, apperr.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the §6 error envelope `{"error": "<message>"}`,
// mapping any plain error to an internal server error.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	status := http.StatusInternalServerError
	message := "internal server error"
	if ok {
		status = statusForKind(appErr.Kind)
		message = appErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

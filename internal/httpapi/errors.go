package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dcheon/KCU/internal/matchmaking"
)

// Error codes shared by every handler. Clients switch on the code, the
// message is for humans.
const (
	codeBadRequest          = "bad_request"
	codeUnauthorized        = "unauthorized"
	codeInternal            = "internal"
	codeMatchNotFound       = "match_not_found"
	codeParticipantMismatch = "participant_mismatch"
	codeUsernameTaken       = "username_taken"
	codeInvalidCredentials  = "invalid_credentials"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

// writeMatchmakingError maps the core's sentinel errors onto the HTTP
// surface. An unknown, already-finalized, or never-existing match id
// all come out as the same 404.
func writeMatchmakingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matchmaking.ErrUnknownMatch):
		writeError(w, http.StatusNotFound, codeMatchNotFound, "no live match with this id")
	case errors.Is(err, matchmaking.ErrParticipantMismatch):
		writeError(w, http.StatusBadRequest, codeParticipantMismatch,
			"winner and loser must be distinct match participants")
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to record result")
	}
}

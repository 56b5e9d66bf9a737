package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dcheon/KCU/internal/matchmaking"
)

// ResultLog reads back outcomes that have already been persisted.
type ResultLog interface {
	Recent(ctx context.Context, limit int) ([]matchmaking.Outcome, error)
}

// MatchHandler exposes the matchmaking core over JSON.
type MatchHandler struct {
	Matches *matchmaking.Service
	Results ResultLog
}

func (h *MatchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/matchmaking/join", h.Join)
	mux.HandleFunc("GET /api/matchmaking/status/{matchID}", h.Status)
	mux.HandleFunc("GET /api/matchmaking/queue", h.Queue)
	mux.HandleFunc("POST /api/matchmaking/result", h.Result)
	mux.HandleFunc("GET /api/matchmaking/results", h.RecentResults)
}

type joinRequest struct {
	UserID string `json:"userId"`
}

type joinResponse struct {
	Status     string `json:"status"`
	MatchID    string `json:"matchId,omitempty"`
	OpponentID string `json:"opponentId,omitempty"`
	Message    string `json:"message"`
}

func (h *MatchHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid json")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "userId is required")
		return
	}

	res := h.Matches.Join(req.UserID)

	switch res.Status {
	case matchmaking.StatusAlreadyWaiting:
		writeJSON(w, http.StatusOK, joinResponse{
			Status:  string(matchmaking.StatusWaiting),
			Message: "already waiting for an opponent",
		})
	case matchmaking.StatusWaiting:
		writeJSON(w, http.StatusOK, joinResponse{
			Status:  string(res.Status),
			Message: "waiting for an opponent",
		})
	case matchmaking.StatusMatched:
		writeJSON(w, http.StatusOK, joinResponse{
			Status:     string(res.Status),
			MatchID:    res.MatchID,
			OpponentID: res.Opponent,
			Message:    "opponent found",
		})
	}
}

type matchStatusResponse struct {
	MatchID   string    `json:"matchId"`
	Players   []string  `json:"players"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *MatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("matchID")

	m, ok := h.Matches.Status(matchID)
	if !ok {
		writeError(w, http.StatusNotFound, codeMatchNotFound, "no live match with this id")
		return
	}

	writeJSON(w, http.StatusOK, matchStatusResponse{
		MatchID:   m.ID,
		Players:   m.Players[:],
		CreatedAt: m.CreatedAt,
	})
}

func (h *MatchHandler) Queue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"waitingUsers": h.Matches.QueueSnapshot(),
	})
}

type resultRequest struct {
	MatchID  string `json:"matchId"`
	WinnerID string `json:"winnerId"`
	LoserID  string `json:"loserId"`
}

type resultResponse struct {
	MatchID    string    `json:"matchId"`
	WinnerID   string    `json:"winnerId"`
	LoserID    string    `json:"loserId"`
	RecordedAt time.Time `json:"recordedAt"`
}

func (h *MatchHandler) Result(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid json")
		return
	}
	if req.MatchID == "" || req.WinnerID == "" || req.LoserID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "matchId, winnerId and loserId are required")
		return
	}

	o, err := h.Matches.Record(r.Context(), req.MatchID, req.WinnerID, req.LoserID)
	if err != nil {
		writeMatchmakingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse{
		MatchID:    o.MatchID,
		WinnerID:   o.Winner,
		LoserID:    o.Loser,
		RecordedAt: o.RecordedAt,
	})
}

const defaultRecentResults = 20

func (h *MatchHandler) RecentResults(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentResults
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	outcomes, err := h.Results.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to load results")
		return
	}

	items := make([]resultResponse, 0, len(outcomes))
	for _, o := range outcomes {
		items = append(items, resultResponse{
			MatchID:    o.MatchID,
			WinnerID:   o.Winner,
			LoserID:    o.Loser,
			RecordedAt: o.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]resultResponse{"results": items})
}

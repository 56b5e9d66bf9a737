package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dcheon/KCU/internal/store"
)

// ScoreHandler stores drawing scores and serves rankings. The overall
// top list comes from Postgres; the per-day leaderboard is served from
// the Redis cache fed on every submit.
type ScoreHandler struct {
	Scores      *store.ScoreStore
	Leaderboard *store.Leaderboard
	Log         *slog.Logger
}

func (h *ScoreHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/scores", h.Save)
	mux.HandleFunc("GET /api/ranking/top", h.Top)
	mux.HandleFunc("GET /api/ranking/daily", h.Daily)
}

type saveScoreRequest struct {
	UserID    string  `json:"userId"`
	Score     float64 `json:"score"`
	Date      string  `json:"date,omitempty"`
	ImagePath string  `json:"imagePath,omitempty"`
}

type saveScoreResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Score     float64   `json:"score"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *ScoreHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid json")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "userId is required")
		return
	}
	if req.Score < 0 || req.Score > 1 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "score must be between 0 and 1")
		return
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format("2006-01-02")
	}

	sc, err := h.Scores.Save(r.Context(), store.Score{
		UserID:    req.UserID,
		Date:      req.Date,
		Score:     req.Score,
		ImagePath: req.ImagePath,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to save score")
		return
	}

	// cache refresh is best effort, the row is already durable
	if h.Leaderboard != nil {
		if err := h.Leaderboard.Submit(r.Context(), sc.Date, sc.UserID, sc.Score); err != nil {
			h.Log.Warn("failed to update daily leaderboard",
				"user_id", sc.UserID,
				"date", sc.Date,
				"error", err,
			)
		}
	}

	writeJSON(w, http.StatusOK, saveScoreResponse{
		ID:        sc.ID,
		UserID:    sc.UserID,
		Score:     sc.Score,
		Date:      sc.Date,
		CreatedAt: sc.CreatedAt,
	})
}

type rankItem struct {
	Rank   int     `json:"rank"`
	UserID string  `json:"userId"`
	Score  float64 `json:"score"`
	Date   string  `json:"date,omitempty"`
}

func (h *ScoreHandler) Top(w http.ResponseWriter, r *http.Request) {
	items, err := h.Scores.Top(r.Context(), 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to load ranking")
		return
	}
	writeJSON(w, http.StatusOK, toRankItems(items))
}

func (h *ScoreHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	items, err := h.Leaderboard.Top(r.Context(), date, 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to load daily leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, toRankItems(items))
}

func toRankItems(items []store.RankItem) []rankItem {
	out := make([]rankItem, 0, len(items))
	for _, it := range items {
		out = append(out, rankItem{
			Rank:   it.Rank,
			UserID: it.UserID,
			Score:  it.Score,
			Date:   it.Date,
		})
	}
	return out
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/detective/internal/domain/leaderboard"
	"github.com/okian/detective/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, gameID string) []types.Row
	TopN(ctx context.Context, gameID string, n int) []types.Row
	Rank(ctx context.Context, gameID, name, group string) (types.Row, error)
	AddScore(ctx context.Context, gameID, name, group string, score float64, elapsed string) leaderboard.Outcome
	ClearLeaderboard(ctx context.Context, gameID string)
	Games(ctx context.Context) []string
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// scoreRequest is the body of POST /leaderboard/{game}. Time wins over
// TimeMs when both are set.
type scoreRequest struct {
	Name   string  `json:"name"`
	Group  string  `json:"group"`
	Score  float64 `json:"score"`
	Time   string  `json:"time"`
	TimeMs int64   `json:"time_ms"`
}

type scoreResponse struct {
	Outcome leaderboard.Outcome `json:"outcome"`
	Rows    []types.Row         `json:"rows"`
}

// HandleGames handles GET /leaderboard, listing games with a board.
func (h *LeaderboardHandler) HandleGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Games(r.Context()))
}

// HandleLeaderboard handles GET|POST|DELETE /leaderboard/{game}.
// GET accepts limit=N, or name and group to fetch a single ranked row.
func (h *LeaderboardHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard"
	game := pathParam(r, "/leaderboard/")
	if game == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, nil))
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, game)
	case http.MethodPost:
		var req scoreRequest
		if !decodeBody(w, r, op, &req) {
			return
		}
		elapsed := req.Time
		if elapsed == "" {
			elapsed = leaderboard.FormatElapsed(time.Duration(req.TimeMs) * time.Millisecond)
		}
		outcome := h.deps.AddScore(ctx, game, req.Name, req.Group, req.Score, elapsed)
		writeJSON(w, http.StatusOK, scoreResponse{Outcome: outcome, Rows: h.deps.Leaderboard(ctx, game)})
	case http.MethodDelete:
		h.deps.ClearLeaderboard(ctx, game)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (h *LeaderboardHandler) get(w http.ResponseWriter, r *http.Request, game string) {
	const op = "api.get_leaderboard"
	ctx := r.Context()
	q := r.URL.Query()

	if q.Has("name") {
		row, err := h.deps.Rank(ctx, game, q.Get("name"), q.Get("group"))
		if err != nil {
			if errors.Is(err, leaderboard.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrNotFound, err))
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, row)
		return
	}

	limitStr := q.Get("limit")
	if limitStr == "" {
		writeJSON(w, http.StatusOK, h.deps.Leaderboard(ctx, game))
		return
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", wrapKind(op, ErrLimitExceeded, nil))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.TopN(ctx, game, n))
}

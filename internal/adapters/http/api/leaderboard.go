package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/lomba/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, category model.Category, includeUnpublished bool) ([]Entry, error)
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

// HandleGetLeaderboard handles GET /leaderboard?category=C&include_unpublished=B&limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	q := r.URL.Query()

	category, err := model.ParseCategory(q.Get("category"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	includeUnpublished := false
	if v := q.Get("include_unpublished"); v != "" {
		if includeUnpublished, err = strconv.ParseBool(v); err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid include_unpublished %q", v)))
			return
		}
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid limit %q", v)))
			return
		}
		if limit > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded",
				WrapKind(op, ErrBadRequest, fmt.Errorf("limit must not exceed %d", h.maxLimit)))
			return
		}
	}

	entries, err := h.deps.Leaderboard(r.Context(), category, includeUnpublished)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	writeJSON(w, http.StatusOK, entries)
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/lomba/internal/domain/model"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	TeamRank(ctx context.Context, category model.Category, teamID string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{category}/{teamId} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	category, err := model.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	teamID := strings.TrimSpace(r.PathValue("teamId"))
	if teamID == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.TeamRank(r.Context(), category, teamID)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

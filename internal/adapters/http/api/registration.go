package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/lomba/internal/domain/model"
)

// RegistrationDependencies defines the interface for competition and team registration.
type RegistrationDependencies interface {
	CreateCompetition(ctx context.Context, c model.Competition) (model.Competition, error)
	SetPublished(ctx context.Context, id string, published bool) (model.Competition, error)
	ListCompetitions(ctx context.Context, includeUnpublished bool) ([]model.Competition, error)
	CreateTeam(ctx context.Context, t model.Team) (model.Team, error)
	ListTeams(ctx context.Context, category model.Category) ([]model.Team, error)
}

type criterionRequest struct {
	ID   string `json:"id" validate:"omitempty,max=64"`
	Name string `json:"name" validate:"required,max=120"`
}

type competitionRequest struct {
	ID           string             `json:"id" validate:"omitempty,max=64"`
	Name         string             `json:"name" validate:"required,max=120"`
	IsIndividual bool               `json:"isIndividual"`
	IsPublished  bool               `json:"isPublished"`
	Criteria     []criterionRequest `json:"criteria" validate:"omitempty,dive"`
}

func (r competitionRequest) competition() model.Competition {
	c := model.Competition{
		ID:           r.ID,
		Name:         r.Name,
		IsIndividual: r.IsIndividual,
		IsPublished:  r.IsPublished,
		Criteria:     make([]model.Criterion, len(r.Criteria)),
	}
	for i, cr := range r.Criteria {
		c.Criteria[i] = model.Criterion{ID: cr.ID, Name: cr.Name}
	}
	return c
}

type teamRequest struct {
	ID       string `json:"id" validate:"omitempty,max=64"`
	School   string `json:"school" validate:"max=160"`
	TeamName string `json:"teamName" validate:"required,max=120"`
	Type     string `json:"type" validate:"required,oneof=Putra Putri"`
}

type publishRequest struct {
	Published *bool `json:"published" validate:"required"`
}

// RegistrationHandler handles competition and team registration.
type RegistrationHandler struct {
	deps RegistrationDependencies
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(deps RegistrationDependencies) *RegistrationHandler {
	return &RegistrationHandler{deps: deps}
}

// decode reads and validates a JSON body into dst.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// HandlePostCompetition handles POST /competitions requests.
func (h *RegistrationHandler) HandlePostCompetition(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_competition"
	var req competitionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	c, err := h.deps.CreateCompetition(r.Context(), req.competition())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleListCompetitions handles GET /competitions?include_unpublished=B requests.
func (h *RegistrationHandler) HandleListCompetitions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_competitions"
	includeUnpublished := false
	if v := r.URL.Query().Get("include_unpublished"); v != "" {
		var err error
		if includeUnpublished, err = strconv.ParseBool(v); err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid include_unpublished %q", v)))
			return
		}
	}
	comps, err := h.deps.ListCompetitions(r.Context(), includeUnpublished)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, comps)
}

// HandlePublish handles POST /competitions/{id}/publish requests.
func (h *RegistrationHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	const op = "api.publish_competition"
	var req publishRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	c, err := h.deps.SetPublished(r.Context(), r.PathValue("id"), *req.Published)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandlePostTeam handles POST /teams requests.
func (h *RegistrationHandler) HandlePostTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_team"
	var req teamRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	t, err := h.deps.CreateTeam(r.Context(), model.Team{
		ID:       req.ID,
		School:   req.School,
		TeamName: req.TeamName,
		Type:     model.Category(req.Type),
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleListTeams handles GET /teams?category=C requests. Without a
// category every team is listed.
func (h *RegistrationHandler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_teams"
	var category model.Category
	if v := r.URL.Query().Get("category"); v != "" {
		c, err := model.ParseCategory(v)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		category = c
	}
	teams, err := h.deps.ListTeams(r.Context(), category)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

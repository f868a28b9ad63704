package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/pkg/metrics"
)

var validate = validator.New()

// scoreRequest mirrors the OpenAPI schema for POST /scores.
type scoreRequest struct {
	SubmissionID  string             `json:"submissionId" validate:"omitempty,max=128"`
	TeamID        string             `json:"teamId" validate:"required"`
	CompetitionID string             `json:"competitionId" validate:"required"`
	JudgeID       string             `json:"judgeId" validate:"required"`
	MemberName    string             `json:"memberName" validate:"omitempty,max=120"`
	Marks         map[string]float64 `json:"marks" validate:"omitempty,dive,keys,required,endkeys"`
	TotalScore    *float64           `json:"totalScore"`
	SubmittedAt   string             `json:"submittedAt"`
}

func (r scoreRequest) validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if len(r.Marks) == 0 && r.TotalScore == nil {
		return errors.New("marks or totalScore is required")
	}
	if r.SubmittedAt != "" {
		if _, err := time.Parse(time.RFC3339, r.SubmittedAt); err != nil {
			return errors.New("invalid submittedAt; must be RFC3339")
		}
	}
	return nil
}

func (r scoreRequest) submission() model.Submission {
	sub := model.Submission{
		SubmissionID:  strings.TrimSpace(r.SubmissionID),
		TeamID:        strings.TrimSpace(r.TeamID),
		CompetitionID: strings.TrimSpace(r.CompetitionID),
		JudgeID:       strings.TrimSpace(r.JudgeID),
		MemberName:    strings.TrimSpace(r.MemberName),
		Marks:         r.Marks,
		Total:         r.TotalScore,
	}
	if sub.SubmissionID == "" {
		sub.SubmissionID = uuid.NewString()
	}
	if ts, err := time.Parse(time.RFC3339, r.SubmittedAt); err == nil {
		sub.SubmittedAt = ts.UTC()
	}
	return sub
}

// ScoresHandler accepts judges' score sheets.
type ScoresHandler struct {
	deps    ScoreDependencies
	limiter *rate.Limiter
}

// NewScoresHandler creates a new scores handler limited to limit requests per second.
func NewScoresHandler(deps ScoreDependencies, limit rate.Limit, burst int) *ScoresHandler {
	return &ScoresHandler{deps: deps, limiter: rate.NewLimiter(limit, burst)}
}

// HandlePostScore handles POST /scores requests.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if !h.limiter.Allow() {
		metrics.RecordSubmissionRejected("rate_limited")
		writeFailure(w, NewKind(op, ErrRateLimited))
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RecordSubmissionRejected("malformed")
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	sub := req.submission()

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), sub.SubmissionID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", SubmissionID: sub.SubmissionID, Duplicate: true})
		return
	}

	if err := h.deps.ValidateSubmission(r.Context(), sub); err != nil {
		h.deps.Unrecord(r.Context(), sub.SubmissionID)
		metrics.RecordSubmissionRejected("unscorable")
		writeFailure(w, Wrap(op, err))
		return
	}

	if ok := h.deps.Enqueue(r.Context(), sub); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), sub.SubmissionID)
		writeFailure(w, NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: sub.SubmissionID})
}

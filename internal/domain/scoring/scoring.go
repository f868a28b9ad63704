// Package scoring turns a judge's score sheet into a stored score row.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/lomba/internal/domain/model"
)

// Option applies a configuration option to the CriteriaScorer.
type Option func(*CriteriaScorer)

// WithClock sets the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *CriteriaScorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxMark bounds every single mark (and a direct total) to [0, limit].
// A limit of zero or less disables the check.
func WithMaxMark(limit float64) Option {
	return func(s *CriteriaScorer) {
		s.maxMark = limit
	}
}

// Input is one score sheet as handed to the scorer.
type Input struct {
	TeamID        string
	CompetitionID string
	JudgeID       string
	MemberName    string
	Marks         map[string]float64
	Total         *float64
}

// InputFromSubmission extracts the scoring fields of a submission.
func InputFromSubmission(sub model.Submission) Input {
	return Input{
		TeamID:        sub.TeamID,
		CompetitionID: sub.CompetitionID,
		JudgeID:       sub.JudgeID,
		MemberName:    sub.MemberName,
		Marks:         sub.Marks,
		Total:         sub.Total,
	}
}

// Result contains the row to upsert.
type Result struct {
	Score       model.Score
	Competition model.Competition
}

// Scorer computes a score row from a sheet.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// CompetitionLookup resolves competitions by id. Unknown ids must yield
// an error matching model.ErrNotFound.
type CompetitionLookup interface {
	Competition(ctx context.Context, id string) (model.Competition, error)
}

// CriteriaScorer sums per-criterion marks into a judge total.
type CriteriaScorer struct {
	lookup  CompetitionLookup
	now     func() time.Time
	maxMark float64
}

// NewCriteriaScorer creates a scorer backed by lookup.
func NewCriteriaScorer(lookup CompetitionLookup, opts ...Option) *CriteriaScorer {
	s := &CriteriaScorer{
		lookup: lookup,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score validates the sheet against its competition and sums the marks.
func (s *CriteriaScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	if strings.TrimSpace(in.TeamID) == "" || strings.TrimSpace(in.JudgeID) == "" {
		return Result{}, ErrIncompleteSheet
	}

	comp, err := s.lookup.Competition(ctx, in.CompetitionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %q", ErrUnknownCompetition, in.CompetitionID)
		}
		return Result{}, fmt.Errorf("lookup competition %q: %w", in.CompetitionID, err)
	}

	member := strings.TrimSpace(in.MemberName)
	if comp.IsIndividual && member == "" {
		return Result{}, fmt.Errorf("%w: competition %q", ErrMemberRequired, comp.Name)
	}
	if !comp.IsIndividual && member != "" {
		return Result{}, fmt.Errorf("%w: competition %q", ErrMemberNotAllowed, comp.Name)
	}

	total, err := s.total(comp, in)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Score: model.Score{
			TeamID:        in.TeamID,
			CompetitionID: comp.ID,
			JudgeID:       in.JudgeID,
			TotalScore:    total,
			MemberName:    member,
			UpdatedAt:     s.now().UTC(),
		},
		Competition: comp,
	}, nil
}

func (s *CriteriaScorer) total(comp model.Competition, in Input) (float64, error) {
	if len(comp.Criteria) == 0 {
		if in.Total == nil {
			return 0, fmt.Errorf("%w: competition %q has no criteria", ErrTotalRequired, comp.Name)
		}
		if err := s.checkRange("total", *in.Total); err != nil {
			return 0, err
		}
		return *in.Total, nil
	}

	if len(in.Marks) == 0 {
		return 0, fmt.Errorf("%w: competition %q", ErrNoMarks, comp.Name)
	}

	// Sum in a fixed order so equal sheets give bit-identical totals.
	ids := make([]string, 0, len(in.Marks))
	for id := range in.Marks {
		if !comp.HasCriterion(id) {
			return 0, fmt.Errorf("%w: %q in competition %q", ErrUnknownCriterion, id, comp.Name)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total float64
	for _, id := range ids {
		mark := in.Marks[id]
		if err := s.checkRange(id, mark); err != nil {
			return 0, err
		}
		total += mark
	}
	return total, nil
}

func (s *CriteriaScorer) checkRange(name string, v float64) error {
	if s.maxMark <= 0 {
		return nil
	}
	if v < 0 || v > s.maxMark {
		return fmt.Errorf("%w: %s=%v not in [0, %v]", ErrMarkOutOfRange, name, v, s.maxMark)
	}
	return nil
}

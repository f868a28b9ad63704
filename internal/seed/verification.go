package seed

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/internal/domain/types"
	"github.com/okian/lomba/pkg/logger"
)

// totalTolerance absorbs float noise in the sum of rounded averages.
const totalTolerance = 0.005

// Expectation describes what a leaderboard built from a plan must show.
type Expectation struct {
	Teams      int      // Entries expected
	Numeric    []string // Competitions shown as a number on every row
	Individual []string // Competitions shown as "Individu" on every row
	Absent     []string // Competitions that must not appear
}

// expectationFor derives the expectation of one category from plan.
func expectationFor(plan Plan, category model.Category, includeUnpublished bool) Expectation {
	var want Expectation
	for _, t := range plan.Teams {
		if t.Type == category {
			want.Teams++
		}
	}
	for _, c := range plan.Competitions {
		switch {
		case !c.IsPublished && !includeUnpublished:
			want.Absent = append(want.Absent, c.ID)
		case c.IsIndividual:
			want.Individual = append(want.Individual, c.ID)
		default:
			want.Numeric = append(want.Numeric, c.ID)
		}
	}
	return want
}

// Verify checks entries against want and the skip-ranking rules: ranks
// start at 1 and never decrease, a shared rank means equal medals and
// total, a new rank equals the row's position, and medals never increase
// down the table.
func Verify(entries []types.RankedEntry, want Expectation) error {
	var errs []error
	if len(entries) != want.Teams {
		errs = append(errs, fmt.Errorf("got %d entries, want %d", len(entries), want.Teams))
	}

	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				errs = append(errs, fmt.Errorf("first entry %s has rank %d", e.TeamID, e.Rank))
			}
		} else {
			errs = append(errs, checkOrder(i, entries[i-1], e)...)
		}
		errs = append(errs, checkRow(e, want)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
	}
	return nil
}

func checkOrder(i int, prev, cur types.RankedEntry) []error {
	var errs []error
	switch {
	case cur.Rank == prev.Rank:
		if cur.Medals != prev.Medals || math.Abs(cur.TotalScore-prev.TotalScore) > totalTolerance {
			errs = append(errs, fmt.Errorf("%s and %s share rank %d with different keys", prev.TeamID, cur.TeamID, cur.Rank))
		}
	case cur.Rank != i+1:
		errs = append(errs, fmt.Errorf("%s at position %d has rank %d", cur.TeamID, i+1, cur.Rank))
	}
	if medalsAbove(cur.Medals, prev.Medals) {
		errs = append(errs, fmt.Errorf("%s has more medals than %s above it", cur.TeamID, prev.TeamID))
	}
	return errs
}

func checkRow(e types.RankedEntry, want Expectation) []error {
	var errs []error
	sum := 0.0
	for _, id := range want.Numeric {
		s, ok := e.ScoresByCompetition[id]
		if !ok || s.Individual {
			errs = append(errs, fmt.Errorf("%s: competition %s is not numeric", e.TeamID, id))
			continue
		}
		sum += s.Value
	}
	for _, id := range want.Individual {
		if s, ok := e.ScoresByCompetition[id]; !ok || !s.Individual {
			errs = append(errs, fmt.Errorf("%s: competition %s is not marked %s", e.TeamID, id, types.IndividualMarker))
		}
	}
	for _, id := range want.Absent {
		if _, ok := e.ScoresByCompetition[id]; ok {
			errs = append(errs, fmt.Errorf("%s: unpublished competition %s is shown", e.TeamID, id))
		}
	}
	if math.Abs(sum-e.TotalScore) > totalTolerance {
		errs = append(errs, fmt.Errorf("%s: total %.2f does not match sum %.2f", e.TeamID, e.TotalScore, sum))
	}
	return errs
}

// medalsAbove reports whether a sorts strictly above b.
func medalsAbove(a, b types.Medals) bool {
	if a.Gold != b.Gold {
		return a.Gold > b.Gold
	}
	if a.Silver != b.Silver {
		return a.Silver > b.Silver
	}
	return a.Bronze > b.Bronze
}

// logTop shows the head of a verified leaderboard.
func logTop(ctx context.Context, log logger.Logger, category model.Category, entries []types.RankedEntry, verbose bool) {
	n := min(3, len(entries))
	if verbose {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		log.Info(ctx, "leaderboard entry",
			logger.String("category", string(category)),
			logger.Int("rank", e.Rank),
			logger.String("team", e.TeamName),
			logger.Int("gold", e.Medals.Gold),
			logger.Int("silver", e.Medals.Silver),
			logger.Int("bronze", e.Medals.Bronze),
			logger.Float64("total", e.TotalScore))
	}
}

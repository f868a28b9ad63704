// Package ranking turns raw per-judge scores into a medal leaderboard.
//
// A leaderboard is computed for one category at a time:
//
//   - team competitions average every judge's row per team and award
//     gold/silver/bronze to the top three strictly positive averages;
//   - the flagship competition awards 3/2/1 gold instead and its average
//     becomes a tie-break key;
//   - individual competitions award medals to the teams that fielded the
//     top three strictly positive rows and show "Individu" for every team.
//
// Teams are ordered by gold, silver, bronze, flagship score and total
// score, all descending, and numbered with skip ranking (1, 1, 3, ...).
//
// The Engine holds configuration only. Every Rank call builds its own
// tallies, so one Engine can serve concurrent requests.
package ranking

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/internal/domain/types"
)

// DefaultFlagshipName is matched case-insensitively against competition names.
const DefaultFlagshipName = "tapak kemah"

// medalPlaces is how many places earn a medal in each competition.
const medalPlaces = 3

// Input is one already-fetched snapshot of the three collections.
type Input struct {
	Competitions       []model.Competition
	Teams              []model.Team
	Scores             []model.Score
	Category           model.Category
	IncludeUnpublished bool
}

// Engine ranks teams. Use New to build one.
type Engine struct {
	flagship string
}

// Option configures an Engine.
type Option func(*Engine)

// WithFlagshipName overrides the competition name treated as flagship.
func WithFlagshipName(name string) Option {
	return func(e *Engine) {
		if n := normalizeName(name); n != "" {
			e.flagship = n
		}
	}
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{flagship: normalizeName(DefaultFlagshipName)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FlagshipName returns the normalized flagship name.
func (e *Engine) FlagshipName() string { return e.flagship }

// IsFlagship reports whether c is the flagship competition.
func (e *Engine) IsFlagship(c model.Competition) bool {
	return normalizeName(c.Name) == e.flagship
}

// normalizeName folds case and trims surrounding whitespace. Inner spacing
// must match exactly.
func normalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// tally accumulates one team's state during a single Rank call.
type tally struct {
	entry types.RankedEntry
	total float64
}

// Rank computes the ordered, rank-annotated leaderboard for in.Category.
// It never mutates its input and returns an empty, non-nil slice when no
// competition or team is in scope. Scores referencing teams outside the
// scope are ignored.
func (e *Engine) Rank(in Input) []types.RankedEntry {
	competitions := scopeCompetitions(in.Competitions, in.IncludeUnpublished)
	tallies, order := scopeTeams(in.Teams, in.Category)
	if len(competitions) == 0 || len(order) == 0 {
		return []types.RankedEntry{}
	}

	rows := rowsByCompetition(in.Scores, tallies)
	for _, c := range competitions {
		if c.IsIndividual {
			awardIndividual(c, rows[c.ID], tallies, order)
			continue
		}
		awardTeam(c, rows[c.ID], e.IsFlagship(c), tallies, order)
	}

	entries := make([]types.RankedEntry, len(order))
	for i, t := range order {
		t.entry.TotalScore = round2(t.total)
		entries[i] = t.entry
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return compare(entries[i], entries[j]) > 0
	})
	assignRanks(entries)
	return entries
}

func scopeCompetitions(all []model.Competition, includeUnpublished bool) []model.Competition {
	out := make([]model.Competition, 0, len(all))
	for _, c := range all {
		if c.IsPublished || includeUnpublished {
			out = append(out, c)
		}
	}
	return out
}

// scopeTeams keeps the first occurrence of every team of category.
func scopeTeams(all []model.Team, category model.Category) (map[string]*tally, []*tally) {
	tallies := make(map[string]*tally)
	order := make([]*tally, 0, len(all))
	for _, t := range all {
		if t.Type != category {
			continue
		}
		if _, dup := tallies[t.ID]; dup {
			continue
		}
		tl := &tally{entry: types.RankedEntry{
			TeamID:              t.ID,
			TeamName:            t.TeamName,
			School:              t.School,
			ScoresByCompetition: make(map[string]types.CompetitionScore),
		}}
		tallies[t.ID] = tl
		order = append(order, tl)
	}
	return tallies, order
}

// rowsByCompetition groups in-scope rows, preserving input order.
func rowsByCompetition(scores []model.Score, tallies map[string]*tally) map[string][]model.Score {
	rows := make(map[string][]model.Score)
	for _, s := range scores {
		if _, ok := tallies[s.TeamID]; !ok {
			continue
		}
		rows[s.CompetitionID] = append(rows[s.CompetitionID], s)
	}
	return rows
}

func awardIndividual(c model.Competition, rows []model.Score, tallies map[string]*tally, order []*tally) {
	for _, t := range order {
		t.entry.ScoresByCompetition[c.ID] = types.Individual()
	}

	sorted := make([]model.Score, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalScore > sorted[j].TotalScore
	})
	for place := 0; place < medalPlaces && place < len(sorted); place++ {
		if sorted[place].TotalScore <= 0 {
			break
		}
		addMedal(&tallies[sorted[place].TeamID].entry.Medals, place)
	}
}

type placing struct {
	tally   *tally
	average float64
}

func awardTeam(c model.Competition, rows []model.Score, flagship bool, tallies map[string]*tally, order []*tally) {
	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[string]*acc, len(order))
	for _, r := range rows {
		a := sums[r.TeamID]
		if a == nil {
			a = &acc{}
			sums[r.TeamID] = a
		}
		a.sum += r.TotalScore
		a.count++
	}

	placings := make([]placing, len(order))
	for i, t := range order {
		var avg float64
		if a := sums[t.entry.TeamID]; a != nil {
			avg = a.sum / float64(a.count)
		}
		rounded := round2(avg)
		t.entry.ScoresByCompetition[c.ID] = types.Numeric(rounded)
		t.total += rounded
		if flagship {
			t.entry.FlagshipScore += avg
		}
		placings[i] = placing{tally: t, average: avg}
	}

	sort.SliceStable(placings, func(i, j int) bool {
		return placings[i].average > placings[j].average
	})
	for place := 0; place < medalPlaces && place < len(placings); place++ {
		if placings[place].average <= 0 {
			break
		}
		medals := &placings[place].tally.entry.Medals
		if flagship {
			medals.Gold += medalPlaces - place
			continue
		}
		addMedal(medals, place)
	}
}

func addMedal(m *types.Medals, place int) {
	switch place {
	case 0:
		m.Gold++
	case 1:
		m.Silver++
	case 2:
		m.Bronze++
	}
}

// compare orders by the five ranking keys; positive means a ranks above b.
func compare(a, b types.RankedEntry) int {
	keys := [...][2]float64{
		{float64(a.Medals.Gold), float64(b.Medals.Gold)},
		{float64(a.Medals.Silver), float64(b.Medals.Silver)},
		{float64(a.Medals.Bronze), float64(b.Medals.Bronze)},
		{a.FlagshipScore, b.FlagshipScore},
		{a.TotalScore, b.TotalScore},
	}
	for _, k := range keys {
		switch {
		case k[0] > k[1]:
			return 1
		case k[0] < k[1]:
			return -1
		}
	}
	return 0
}

// assignRanks applies skip ranking: ties share a rank and the next
// distinct entry takes its 1-based position.
func assignRanks(entries []types.RankedEntry) {
	for i := range entries {
		if i > 0 && compare(entries[i], entries[i-1]) == 0 {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

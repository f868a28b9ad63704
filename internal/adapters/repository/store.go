// Package repository persists competitions, teams and score rows.
package repository

import (
	"context"

	"github.com/okian/lomba/internal/domain/model"
)

// Counts reports the number of stored documents per collection.
type Counts struct {
	Competitions int `json:"competitions"`
	Teams        int `json:"teams"`
	Scores       int `json:"scores"`
}

// Store provides read/write access to the three collections the
// leaderboard is computed from. Every list is returned in insertion
// order so that equal inputs produce identical rankings.
type Store interface {
	// Competitions lists competitions, only published ones when publishedOnly.
	Competitions(ctx context.Context, publishedOnly bool) ([]model.Competition, error)
	// Competition returns one competition or ErrNotFound.
	Competition(ctx context.Context, id string) (model.Competition, error)
	// SaveCompetition inserts or replaces a competition by id.
	SaveCompetition(ctx context.Context, c model.Competition) error

	// Teams lists teams of category; an empty category lists all teams.
	Teams(ctx context.Context, category model.Category) ([]model.Team, error)
	// Team returns one team or ErrNotFound.
	Team(ctx context.Context, id string) (model.Team, error)
	// SaveTeam inserts or replaces a team by id.
	SaveTeam(ctx context.Context, t model.Team) error

	// Scores lists the rows of the given teams; no ids lists every row.
	Scores(ctx context.Context, teamIDs []string) ([]model.Score, error)
	// UpsertScore writes s under its key and reports whether a new row was created.
	UpsertScore(ctx context.Context, s model.Score) (bool, error)

	// Counts returns collection sizes.
	Counts(ctx context.Context) (Counts, error)
	// Close releases background goroutines and connections.
	Close(ctx context.Context) error
}

func validScore(s model.Score) bool {
	return s.TeamID != "" && s.CompetitionID != "" && s.JudgeID != ""
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*MongoStore)(nil)
)

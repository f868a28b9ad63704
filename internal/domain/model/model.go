// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Category partitions teams into two independent leaderboards.
type Category string

const (
	CategoryPutra Category = "Putra"
	CategoryPutri Category = "Putri"
)

// Categories lists every recognized category in display order.
func Categories() []Category {
	return []Category{CategoryPutra, CategoryPutri}
}

// ParseCategory accepts only the two category literals. Surrounding
// whitespace is ignored; the match is case-sensitive.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.TrimSpace(s)); c {
	case CategoryPutra, CategoryPutri:
		return c, nil
	default:
		return "", &CategoryError{Value: s}
	}
}

// Valid reports whether c is one of the recognized literals.
func (c Category) Valid() bool {
	return c == CategoryPutra || c == CategoryPutri
}

// Criterion is one judged aspect of a competition.
type Criterion struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Competition is an event teams are scored in.
type Competition struct {
	ID           string      `json:"id" bson:"_id"`
	Name         string      `json:"name" bson:"name"`
	IsIndividual bool        `json:"isIndividual" bson:"isIndividual"`
	IsPublished  bool        `json:"isPublished" bson:"isPublished"`
	Criteria     []Criterion `json:"criteria" bson:"criteria"`
	CreatedAt    time.Time   `json:"createdAt" bson:"createdAt"`
}

// HasCriterion reports whether id names one of c's criteria.
func (c Competition) HasCriterion(id string) bool {
	for _, cr := range c.Criteria {
		if cr.ID == id {
			return true
		}
	}
	return false
}

// Team is a school's registered squad in one category.
type Team struct {
	ID        string    `json:"id" bson:"_id"`
	School    string    `json:"school" bson:"school"`
	TeamName  string    `json:"teamName" bson:"teamName"`
	Type      Category  `json:"type" bson:"type"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Score is one judge's total for a team (or one of its members) in a
// competition. MemberName is empty for team-level scores.
type Score struct {
	TeamID        string    `json:"teamId" bson:"teamId"`
	CompetitionID string    `json:"competitionId" bson:"competitionId"`
	JudgeID       string    `json:"judgeId" bson:"judgeId"`
	TotalScore    float64   `json:"totalScore" bson:"totalScore"`
	MemberName    string    `json:"memberName,omitempty" bson:"memberName"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ScoreKey identifies the single row a judge may hold for a
// team/competition/member combination.
type ScoreKey struct {
	TeamID        string
	CompetitionID string
	JudgeID       string
	MemberName    string
}

// Key returns the upsert key of s.
func (s Score) Key() ScoreKey {
	return ScoreKey{
		TeamID:        s.TeamID,
		CompetitionID: s.CompetitionID,
		JudgeID:       s.JudgeID,
		MemberName:    s.MemberName,
	}
}

// Submission is a judge's score sheet as received over the API. Marks
// maps criterion ids to points; Total is used when the competition has
// no criteria.
type Submission struct {
	SubmissionID  string
	TeamID        string
	CompetitionID string
	JudgeID       string
	MemberName    string
	Marks         map[string]float64
	Total         *float64
	SubmittedAt   time.Time
}

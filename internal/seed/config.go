package seed

import (
	"time"

	"github.com/okian/lomba/internal/domain/model"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL          string        // Base URL of the service
	TeamsPerCategory int           // Teams registered in each of Putra and Putri
	Judges           int           // Judges scoring every team
	Resubmit         int           // Sheets sent a second time to exercise dedupe
	Seed             uint64        // Seed of the demo data generator
	Workers          int           // Number of concurrent submitters
	Timeout          time.Duration // HTTP request timeout
	WaitTimeout      time.Duration // How long to wait for the workers to drain
	PollInterval     time.Duration // Interval between /stats polls
	Verbose          bool          // Log every verification detail
}

// Plan is the generated demo event.
type Plan struct {
	Competitions []model.Competition
	Teams        []model.Team
	Sheets       []Sheet
}

// Sheet mirrors the body of POST /scores.
type Sheet struct {
	SubmissionID  string             `json:"submissionId"`
	TeamID        string             `json:"teamId"`
	CompetitionID string             `json:"competitionId"`
	JudgeID       string             `json:"judgeId"`
	MemberName    string             `json:"memberName,omitempty"`
	Marks         map[string]float64 `json:"marks,omitempty"`
	TotalScore    *float64           `json:"totalScore,omitempty"`
}

// AckResponse represents the response from sheet submission.
type AckResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submissionId"`
	Duplicate    bool   `json:"duplicate"`
}

// serviceStats is the subset of GET /stats the runner reads.
type serviceStats struct {
	QueueLength int   `json:"queueLength"`
	Processed   int64 `json:"processed"`
	Failed      int64 `json:"failed"`
}

// Report holds run statistics.
type Report struct {
	SheetsGenerated int
	SheetsSubmitted int
	SheetsAccepted  int
	SheetsDuplicate int
	SheetsFailed    int
	Entries         map[model.Category]int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

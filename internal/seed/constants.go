package seed

import "time"

// Defaults used by cmd/seed and filled in by Run for zero values.
const (
	DefaultTeamsPerCategory = 6
	DefaultJudges           = 3
	DefaultResubmit         = 10
	DefaultSeed             = 2024
	DefaultTimeout          = 10 * time.Second
	DefaultWaitTimeout      = time.Minute
	DefaultPollInterval     = 250 * time.Millisecond
)

// Score generation bounds.
const (
	minMark          = 60.0
	markRange        = 40.0
	membersPerTeam   = 2
	submitAttempts   = 5
	submitRetryDelay = 50 * time.Millisecond
	workerMultiplier = 2
)

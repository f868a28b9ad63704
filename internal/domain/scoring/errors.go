package scoring

import "errors"

// Sentinel kinds for rejected score sheets.
var (
	ErrUnknownCompetition = errors.New("unknown competition")
	ErrUnknownCriterion   = errors.New("unknown criterion")
	ErrMemberRequired     = errors.New("member name required for individual competition")
	ErrMemberNotAllowed   = errors.New("member name not allowed in team competition")
	ErrTotalRequired      = errors.New("total required")
	ErrNoMarks            = errors.New("no marks")
	ErrMarkOutOfRange     = errors.New("mark out of range")
	ErrIncompleteSheet    = errors.New("team and judge are required")
)

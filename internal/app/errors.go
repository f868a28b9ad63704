package service

import (
	"errors"

	"github.com/okian/lomba/internal/domain/model"
)

var (
	// ErrNotStarted is returned by operations called before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrAlreadyExists is returned when registering an id that is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSubmission wraps every reason a sheet is refused at intake.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrInvalidCompetition is returned for malformed competition registrations.
	ErrInvalidCompetition = errors.New("invalid competition")
	// ErrInvalidTeam is returned for malformed team registrations.
	ErrInvalidTeam = errors.New("invalid team")

	// ErrNotFound is returned when a team or competition does not exist.
	ErrNotFound = model.ErrNotFound
	// ErrInvalidCategory is returned for categories other than Putra and Putri.
	ErrInvalidCategory = model.ErrInvalidCategory
)

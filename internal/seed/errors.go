package seed

import "errors"

var (
	// ErrUnexpectedStatus is returned when the service answers with a status the runner cannot use.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrWaitTimeout is returned when queued sheets are not processed in time.
	ErrWaitTimeout = errors.New("timed out waiting for sheets to be processed")
	// ErrVerification is returned when a leaderboard breaks a ranking rule.
	ErrVerification = errors.New("leaderboard verification failed")
)

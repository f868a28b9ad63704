package api

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxLimit         = 1000
	defaultSubmitBurst      = 200
	defaultDashboardRefresh = 5 * time.Second
)

type settings struct {
	maxLimit         int
	submitRate       rate.Limit
	submitBurst      int
	dashboardRefresh time.Duration
}

func defaultSettings() settings {
	return settings{
		maxLimit:         defaultMaxLimit,
		submitRate:       rate.Inf,
		submitBurst:      defaultSubmitBurst,
		dashboardRefresh: defaultDashboardRefresh,
	}
}

// Option configures the Server.
type Option func(*settings)

// WithMaxLimit caps the limit query parameter of GET /leaderboard.
func WithMaxLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithSubmitRate limits POST /scores to perSecond requests with burst.
// A non-positive rate disables the limit.
func WithSubmitRate(perSecond float64, burst int) Option {
	return func(s *settings) {
		if perSecond <= 0 {
			s.submitRate = rate.Inf
			return
		}
		s.submitRate = rate.Limit(perSecond)
		if burst > 0 {
			s.submitBurst = burst
		}
	}
}

// WithDashboardRefresh sets how often the dashboard polls the leaderboard.
func WithDashboardRefresh(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.dashboardRefresh = d
		}
	}
}

package repository

import "time"

const (
	defaultMetricsUpdateInterval = 5 * time.Second
	defaultQueryTimeout          = 5 * time.Second
)

type settings struct {
	metricsUpdateInterval time.Duration
	queryTimeout          time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		queryTimeout:          defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithMetricsUpdateInterval sets the interval for background record-count metrics.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *settings) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithQueryTimeout bounds every MongoStore round trip.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.queryTimeout = timeout
		}
	}
}

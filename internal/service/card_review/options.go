package card_review

import "github.com/phrazzld/scry-srs/internal/platform/metrics"

// Option configures a Service.
type Option func(*reviewService)

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(s *reviewService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMaxAttempts sets the retry cap for version conflicts. Values below one
// are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *reviewService) {
		if n >= 1 {
			s.maxAttempts = n
		}
	}
}

// WithMetrics attaches a Prometheus recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *reviewService) {
		s.metrics = recorder
	}
}

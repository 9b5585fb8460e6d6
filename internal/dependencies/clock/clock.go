package clock

import "time"

// Clock abstracts the current time so visibility windows and handler
// recency can be tested against a controlled clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// New creates a SystemClock
func New() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time in UTC. Persisted timestamps are UTC so
// window comparisons are location-independent.
func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

package utils

import "time"

// Clock abstracts wall-clock access so eligibility and scoring logic can be
// tested with a frozen or advanced time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// NewClock returns a Clock backed by the system time.
func NewClock() Clock {
	return realClock{}
}

// FrozenClock is a Clock pinned to a fixed instant. Tests can reassign T to
// advance time.
type FrozenClock struct {
	T time.Time
}

func (c *FrozenClock) Now() time.Time {
	return c.T
}

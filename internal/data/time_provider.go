package data

import "time"

// TimeProvider abstracts clock access so repositories and services can be
// tested with a fixed time.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider returns the system clock in UTC.
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time { return time.Now().UTC() }

// FixedTimeProvider always returns the same instant. Test helper.
type FixedTimeProvider struct {
	T time.Time
}

func (f FixedTimeProvider) Now() time.Time { return f.T }

package util

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant. Used by tests that compare trade records.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

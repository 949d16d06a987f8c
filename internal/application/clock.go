package application

import "time"

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now() in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T; used by tests and the CI report.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

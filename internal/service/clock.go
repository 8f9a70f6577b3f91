package service

import "time"

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// SystemClock is the UTC wall clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}

func orSystemClock(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

package utils

import "time"

// Clock abstracts time so expiry can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall-clock implementation.
func SystemClock() Clock {
	return systemClock{}
}

package engine

import "time"

// Clock supplies the timestamps recorded at the moment of each mutation.
// All values are UTC; the persistence layer renders them as RFC 3339.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

package events

import "time"

// ServiceResolved is emitted after a Scope creates a service instance, or
// fails to.
type ServiceResolved struct {
	Service  string
	Err      error
	Start    time.Time
	Duration time.Duration
}

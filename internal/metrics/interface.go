package metrics

import (
	"context"
	"time"
)

// Collector receives power events from the dispatcher.
type Collector interface {
	Record(ctx context.Context, event *Event) error
	Close() error
	Enabled() bool
}

// Repository stores events.
type Repository interface {
	Record(event *Event) error
	Flush() error
	Close() error
}

// EventKind names the entry point that produced an event.
type EventKind string

const (
	KindHint        EventKind = "hint"
	KindInteractive EventKind = "interactive"
	KindProfile     EventKind = "profile"
	KindFeature     EventKind = "feature"
	KindBoost       EventKind = "boot_boost"
)

// Outcome is what the dispatcher did with a request.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeRejected   Outcome = "rejected"
	OutcomeIgnored    Outcome = "ignored"
)

// Event is one journal row.
type Event struct {
	Timestamp   time.Time
	Kind        EventKind
	Hint        uint32
	Payload     int32
	Profile     int32
	Interactive bool
	Outcome     Outcome
	Detail      string
}

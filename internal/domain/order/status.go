package order

import "strings"

// Status is the lifecycle state of an order.
//
//	PENDING ──> CONFIRMED ──> SHIPPED ──> DELIVERED
//	   │            │
//	   └────────────┴──> CANCELLED
//
// DELIVERED and CANCELLED are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// statuses lists every status in canonical lifecycle order.
var statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// transitions is the complete set of legal (current -> requested) moves.
// Terminal statuses have no entry.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
}

// Statuses returns all statuses in canonical lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus converts a wire value into a Status. Matching is exact after
// trimming surrounding whitespace.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", false
	}
	return st, true
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further change is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanBeCancelled reports whether an order in status s may move to CANCELLED.
func (s Status) CanBeCancelled() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) String() string {
	return string(s)
}

// Transition validates a checked move from current to requested and returns
// the new status. It has no side effects: the caller persists the result
// together with a refreshed update timestamp.
func Transition(current, requested Status) (Status, error) {
	if current.Terminal() {
		return "", &TransitionError{From: current, To: requested}
	}
	if requested == StatusCancelled {
		if !current.CanBeCancelled() {
			return "", &TransitionError{From: current, To: requested}
		}
		return requested, nil
	}
	for _, next := range transitions[current] {
		if next == requested {
			return requested, nil
		}
	}
	return "", &TransitionError{From: current, To: requested}
}

// AllowedTransitions returns the statuses reachable from s in one checked step.
func AllowedTransitions(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

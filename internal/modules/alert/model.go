// README: Alert aggregate and status definitions.
package alert

import (
	"time"

	"secureher/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusActive    Status = "active"
	StatusAccepted  Status = "accepted"
	StatusResolved  Status = "resolved"
	StatusCancelled Status = "cancelled"
)

type Alert struct {
	ID            types.ID
	UserID        types.ID
	ResponderID   *types.ID
	Status        Status
	StatusVersion int
	Origin        types.Point
	Message       string
	CreatedAt     time.Time
	AcceptedAt    *time.Time
	ResolvedAt    *time.Time
	CancelledAt   *time.Time
}

// Participant reports whether id is the alert owner or its responder.
func (a *Alert) Participant(id types.ID) bool {
	if id == "" {
		return false
	}
	return a.UserID == id || (a.ResponderID != nil && *a.ResponderID == id)
}

// Counterpart returns the other participant for id, or "" when there is none yet.
func (a *Alert) Counterpart(id types.ID) types.ID {
	if a.UserID == id {
		if a.ResponderID == nil {
			return ""
		}
		return *a.ResponderID
	}
	return a.UserID
}

type Event struct {
	ID         int64
	AlertID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the alert state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusActive:   {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusResolved, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Open reports whether the alert still needs attention.
func (s Status) Open() bool {
	return s == StatusActive || s == StatusAccepted
}

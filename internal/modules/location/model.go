// README: Latest-location and snapshot models for the relay.
package location

import (
	"time"

	"secureher/internal/types"
)

// Latest is the most recent position a user pushed. It expires after the
// store's TTL, at which point the user counts as "not sharing".
type Latest struct {
	UserID    types.ID
	Position  types.Point
	UpdatedAt time.Time
}

// Snapshot is one row of location history.
type Snapshot struct {
	ID         int64
	UserID     types.ID
	Position   types.Point
	RecordedAt time.Time
}

type Update struct {
	UserID   types.ID
	Position types.Point
}

// Nearby is a user found by a radius search, nearest first.
type Nearby struct {
	UserID     types.ID
	Position   types.Point
	DistanceKm float64
}

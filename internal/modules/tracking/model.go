// README: Tracking configuration, collaborators and result types.
package tracking

import (
	"context"
	"time"

	"secureher/internal/geo"
	"secureher/internal/localstore"
)

type Config struct {
	// PushInterval is the period of the background location push.
	PushInterval time.Duration
	// MinMovementKm is the distance a fix must move before it is worth pushing.
	MinMovementKm float64
	// MaxStaleness forces a push once the cached fix is this old, moved or not.
	MaxStaleness time.Duration
	// WatchInterval and WatchDistanceMeters shape WatchLocation delivery.
	WatchInterval       time.Duration
	WatchDistanceMeters float64
}

func DefaultConfig() Config {
	return Config{
		PushInterval:        30 * time.Second,
		MinMovementKm:       0.01,
		MaxStaleness:        5 * time.Minute,
		WatchInterval:       10 * time.Second,
		WatchDistanceMeters: 50,
	}
}

// Uploader is the server side of a location push.
type Uploader interface {
	UpdateLocation(ctx context.Context, lat, lng float64) error
}

// Cache persists the last accepted push.
type Cache interface {
	LastLocation(ctx context.Context) (*localstore.LastLocation, error)
	SaveLastLocation(ctx context.Context, l localstore.LastLocation) error
}

// ManualResult is surfaced to the user after a manual update.
type ManualResult struct {
	Success  bool
	Message  string
	Location *geo.LocationData
}

// Ticker is the subset of time.Ticker the push loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

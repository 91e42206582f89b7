package maps

import (
	"context"
	"errors"
	"math"
	"time"

	"secureher/internal/geo"
)

var ErrNoRoute = errors.New("no route found")

// walkingSpeedKmh is used to estimate durations for straight-line routes.
const walkingSpeedKmh = 5.0

// StraightLine draws a direct segment between the endpoints. It is the
// provider used when no directions API key is configured.
type StraightLine struct{}

func (StraightLine) Name() string { return "straight_line" }

func (StraightLine) Route(ctx context.Context, origin, destination geo.MapLocation) (Route, error) {
	if err := ctx.Err(); err != nil {
		return Route{}, err
	}
	km := geo.Between(origin, destination)
	return Route{
		Provider:       "straight_line",
		Points:         []geo.MapLocation{origin, destination},
		DistanceMeters: int(math.Round(km * 1000)),
		Duration:       time.Duration(km / walkingSpeedKmh * float64(time.Hour)),
	}, nil
}

// NewDirectionsProvider selects the provider for this deployment: Google
// when an API key is configured, straight line otherwise.
func NewDirectionsProvider(apiKey string) (DirectionsProvider, error) {
	if apiKey == "" {
		return StraightLine{}, nil
	}
	return NewGoogleDirections(apiKey)
}

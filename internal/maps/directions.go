package maps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"googlemaps.github.io/maps"

	"secureher/internal/geo"
)

// Route is a rendered path between two stabilized endpoints.
type Route struct {
	Provider       string
	Points         []geo.MapLocation
	DistanceMeters int
	Duration       time.Duration
	Summary        string
}

// DirectionsProvider computes the route overlay. Implementations are picked
// once at composition time.
type DirectionsProvider interface {
	Name() string
	Route(ctx context.Context, origin, destination geo.MapLocation) (Route, error)
}

type directionsAPI interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// GoogleDirections handles interactions with the Google Directions API.
type GoogleDirections struct {
	client directionsAPI
	mode   maps.Mode
}

// NewGoogleDirections creates a directions provider with the given API key.
func NewGoogleDirections(apiKey string) (*GoogleDirections, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleDirections{client: client, mode: maps.TravelModeWalking}, nil
}

func (g *GoogleDirections) Name() string { return "google" }

// Route requests one route and decodes its overview polyline.
func (g *GoogleDirections) Route(ctx context.Context, origin, destination geo.MapLocation) (Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLngString(origin),
		Destination: latLngString(destination),
		Mode:        g.mode,
	}

	routes, _, err := g.client.Directions(ctx, r)
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}

	best := routes[0]
	path, err := best.OverviewPolyline.Decode()
	if err != nil {
		return Route{}, fmt.Errorf("decoding polyline: %w", err)
	}

	out := Route{Provider: g.Name(), Summary: best.Summary}
	for _, p := range path {
		out.Points = append(out.Points, geo.MapLocation{Latitude: p.Lat, Longitude: p.Lng})
	}
	for _, leg := range best.Legs {
		out.DistanceMeters += leg.Distance.Meters
		out.Duration += leg.Duration
	}
	return out, nil
}

func latLngString(p geo.MapLocation) string {
	return strconv.FormatFloat(p.Latitude, 'f', 6, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', 6, 64)
}

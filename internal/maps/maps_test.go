package maps

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"googlemaps.github.io/maps"

	"secureher/internal/geo"
)

type fakeDirections struct {
	routes []maps.Route
	err    error
	got    *maps.DirectionsRequest
}

func (f *fakeDirections) Directions(_ context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error) {
	f.got = r
	return f.routes, nil, f.err
}

func TestGoogleDirections_DecodesRoute(t *testing.T) {
	// "_p~iF~ps|U_ulLnnqC_mqNvxq`@" is the reference polyline from the
	// encoding documentation: (38.5,-120.2) (40.7,-120.95) (43.252,-126.453).
	leg := &maps.Leg{Duration: 90 * time.Second}
	leg.Distance.Meters = 1200
	fake := &fakeDirections{routes: []maps.Route{{
		Summary:          "Road 27",
		OverviewPolyline: maps.Polyline{Points: "_p~iF~ps|U_ulLnnqC_mqNvxq`@"},
		Legs:             []*maps.Leg{leg},
	}}}
	g := &GoogleDirections{client: fake, mode: maps.TravelModeWalking}

	r, err := g.Route(context.Background(),
		geo.MapLocation{Latitude: 23.8, Longitude: 90.4},
		geo.MapLocation{Latitude: 23.81, Longitude: 90.41})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if fake.got.Origin != "23.800000,90.400000" {
		t.Errorf("origin = %q", fake.got.Origin)
	}
	if len(r.Points) != 3 || math.Abs(r.Points[0].Latitude-38.5) > 1e-6 {
		t.Errorf("unexpected points: %+v", r.Points)
	}
	if r.DistanceMeters != 1200 || r.Duration != 90*time.Second {
		t.Errorf("unexpected totals: %d %s", r.DistanceMeters, r.Duration)
	}
	if r.Provider != "google" || r.Summary != "Road 27" {
		t.Errorf("unexpected metadata: %+v", r)
	}
}

func TestGoogleDirections_NoRoute(t *testing.T) {
	g := &GoogleDirections{client: &fakeDirections{}}
	_, err := g.Route(context.Background(), geo.MapLocation{}, geo.MapLocation{Latitude: 1})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}

func TestGoogleDirections_APIError(t *testing.T) {
	g := &GoogleDirections{client: &fakeDirections{err: errors.New("OVER_QUERY_LIMIT")}}
	if _, err := g.Route(context.Background(), geo.MapLocation{}, geo.MapLocation{}); err == nil {
		t.Error("expected error")
	}
}

func TestStraightLine(t *testing.T) {
	a := geo.MapLocation{Latitude: 23.80, Longitude: 90.40}
	b := geo.MapLocation{Latitude: 23.81, Longitude: 90.41}
	r, err := StraightLine{}.Route(context.Background(), a, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Points) != 2 || !r.Points[0].SamePoint(a) || !r.Points[1].SamePoint(b) {
		t.Errorf("unexpected points: %+v", r.Points)
	}
	if r.DistanceMeters < 1400 || r.DistanceMeters > 1600 {
		t.Errorf("distance = %dm, want ~1500m", r.DistanceMeters)
	}
	if r.Duration <= 0 {
		t.Error("expected positive duration")
	}
}

func TestNewDirectionsProvider_Selection(t *testing.T) {
	p, err := NewDirectionsProvider("")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "straight_line" {
		t.Errorf("expected straight_line without key, got %s", p.Name())
	}

	p, err = NewDirectionsProvider("test-key")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "google" {
		t.Errorf("expected google with key, got %s", p.Name())
	}
}

type fakeGeocoding struct {
	results []maps.GeocodingResult
	reverse bool
}

func (f *fakeGeocoding) Geocode(_ context.Context, _ *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	return f.results, nil
}

func (f *fakeGeocoding) ReverseGeocode(_ context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	f.reverse = r.LatLng != nil
	return f.results, nil
}

func TestGoogleGeocoder_Converts(t *testing.T) {
	res := maps.GeocodingResult{FormattedAddress: "Gulshan Ave, Dhaka"}
	res.Geometry.Location = maps.LatLng{Lat: 23.79, Lng: 90.41}
	fake := &fakeGeocoding{results: []maps.GeocodingResult{res}}
	g := &GoogleGeocoder{client: fake}

	out, err := g.Reverse(context.Background(), 23.79, 90.41)
	if err != nil {
		t.Fatal(err)
	}
	if !fake.reverse {
		t.Error("expected reverse request to carry LatLng")
	}
	if len(out) != 1 || out[0].FormattedAddress != "Gulshan Ave, Dhaka" || out[0].Coords.Latitude != 23.79 {
		t.Errorf("unexpected results: %+v", out)
	}

	out, err = g.Forward(context.Background(), "Gulshan")
	if err != nil || len(out) != 1 {
		t.Errorf("forward: %v %+v", err, out)
	}
}

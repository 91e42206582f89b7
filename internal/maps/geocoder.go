package maps

import (
	"context"
	"fmt"
	"log"

	"googlemaps.github.io/maps"

	"secureher/internal/geo"
)

// GeocodingResult is one forward or reverse geocoding match.
type GeocodingResult struct {
	Coords           geo.MapLocation
	FormattedAddress string
}

type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) ([]GeocodingResult, error)
	Forward(ctx context.Context, address string) ([]GeocodingResult, error)
}

type geocodingAPI interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// GoogleGeocoder handles interactions with the Google Geocoding API.
type GoogleGeocoder struct {
	client geocodingAPI
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lng float64) ([]GeocodingResult, error) {
	log.Printf("[GEOCODING] reverse lat=%.6f lng=%.6f", lat, lng)
	res, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding: %w", err)
	}
	return convertResults(res), nil
}

func (g *GoogleGeocoder) Forward(ctx context.Context, address string) ([]GeocodingResult, error) {
	log.Printf("[GEOCODING] forward address=%q", address)
	res, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", address, err)
	}
	return convertResults(res), nil
}

func convertResults(in []maps.GeocodingResult) []GeocodingResult {
	out := make([]GeocodingResult, 0, len(in))
	for _, r := range in {
		out = append(out, GeocodingResult{
			Coords: geo.MapLocation{
				Latitude:  r.Geometry.Location.Lat,
				Longitude: r.Geometry.Location.Lng,
			},
			FormattedAddress: r.FormattedAddress,
		})
	}
	return out
}

// Package geo holds the location model shared by the tracking and navigation
// modules, plus the pure geographic helpers they rely on.
package geo

import (
	"math"
	"time"

	"secureher/internal/types"
)

const earthRadiusKm = 6371.0

// MapLocation is a coordinate with an optional viewport span. Deltas are zero
// when the location is a plain point rather than a map region.
type MapLocation struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitudeDelta,omitempty"`
	LongitudeDelta float64 `json:"longitudeDelta,omitempty"`
}

// LocationData is one successful platform fix.
type LocationData struct {
	Coords    MapLocation
	Timestamp time.Time
}

func FromPoint(p types.Point) MapLocation {
	return MapLocation{Latitude: p.Lat, Longitude: p.Lng}
}

func (m MapLocation) Point() types.Point {
	return types.Point{Lat: m.Latitude, Lng: m.Longitude}
}

// SamePoint compares coordinates only, ignoring any viewport span.
func (m MapLocation) SamePoint(o MapLocation) bool {
	return m.Latitude == o.Latitude && m.Longitude == o.Longitude
}

// DistanceKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Between is DistanceKm for two MapLocations.
func Between(a, b MapLocation) float64 {
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

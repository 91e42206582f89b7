package geo

import "math"

const (
	// RegionPadding widens the bounding box so both markers sit inside the viewport.
	RegionPadding = 1.5
	// MinRegionDelta keeps the map from zooming in to street level when the
	// two points coincide.
	MinRegionDelta = 0.01

	DefaultLatitudeDelta  = 0.0922
	DefaultLongitudeDelta = 0.0421
)

// BoundingRegion returns the padded viewport covering every point. With no
// points it returns the zero region and false.
func BoundingRegion(points ...MapLocation) (MapLocation, bool) {
	if len(points) == 0 {
		return MapLocation{}, false
	}
	minLat, maxLat := points[0].Latitude, points[0].Latitude
	minLng, maxLng := points[0].Longitude, points[0].Longitude
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Latitude)
		maxLat = math.Max(maxLat, p.Latitude)
		minLng = math.Min(minLng, p.Longitude)
		maxLng = math.Max(maxLng, p.Longitude)
	}
	return MapLocation{
		Latitude:       (minLat + maxLat) / 2,
		Longitude:      (minLng + maxLng) / 2,
		LatitudeDelta:  math.Max((maxLat-minLat)*RegionPadding, MinRegionDelta),
		LongitudeDelta: math.Max((maxLng-minLng)*RegionPadding, MinRegionDelta),
	}, true
}

// CenteredRegion is the default viewport around a single point.
func CenteredRegion(p MapLocation) MapLocation {
	return MapLocation{
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		LatitudeDelta:  DefaultLatitudeDelta,
		LongitudeDelta: DefaultLongitudeDelta,
	}
}

// Package device models the platform location capability. Real phones plug in
// their own Locator; the agent ships replay and static implementations.
package device

import (
	"context"
	"errors"

	"secureher/internal/geo"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrNoFix            = errors.New("no location fix available")
)

// Locator is the platform geolocation surface the tracking module depends on.
type Locator interface {
	// RequestPermission asks for foreground location access and reports
	// whether it was granted.
	RequestPermission(ctx context.Context) (bool, error)
	// CurrentPosition takes one high-accuracy fix.
	CurrentPosition(ctx context.Context) (geo.LocationData, error)
}

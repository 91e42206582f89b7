// README: Navigation session phases, connection status and the rendered view.
package navigation

import (
	"context"
	"log"
	"time"

	"secureher/internal/apiclient"
	"secureher/internal/geo"
	"secureher/internal/maps"
	"secureher/internal/types"
)

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseReady        Phase = "ready"
	PhaseReloading    Phase = "reloading"
)

type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

type MarkerKind string

const (
	MarkerSelf        MarkerKind = "self"
	MarkerTarget      MarkerKind = "target"
	MarkerParticipant MarkerKind = "participant"
)

type Marker struct {
	Kind   MarkerKind
	Title  string
	Coords geo.MapLocation
}

// View is an immutable snapshot of the session for rendering.
type View struct {
	Params            Params
	Phase             Phase
	Status            ConnectionStatus
	Loading           bool
	Self              *geo.MapLocation
	Participant       *geo.MapLocation
	ParticipantAt     *time.Time
	Region            geo.MapLocation
	Markers           []Marker
	StableOrigin      *geo.MapLocation
	StableDestination *geo.MapLocation
	MapLoaded         bool
	Route             *maps.Route
}

// SelfLocator supplies the device position; tracking.Service satisfies it.
type SelfLocator interface {
	GetCurrentLocation(ctx context.Context) (*geo.LocationData, error)
}

type Uploader interface {
	UpdateLocation(ctx context.Context, lat, lng float64) error
}

type ParticipantSource interface {
	GetAlertParticipantLocation(ctx context.Context, alertID string) (*apiclient.ParticipantLocation, error)
}

// Notifier shows a user-visible alert.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier prints alerts through the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(title, message string) {
	log.Printf("[NAV] %s: %s", title, message)
}

type Deps struct {
	Self         SelfLocator
	API          Uploader
	Participants ParticipantSource
	Directions   maps.DirectionsProvider
	Notifier     Notifier
}

type Options struct {
	// PollInterval between participant polls. Zero means manual-only: the
	// participant is fetched at init and on Reload.
	PollInterval time.Duration
	// OnChange, when set, receives a snapshot after every state change.
	OnChange func(View)
}

func participantTitle(role types.Role) string {
	if role == types.RoleResponder {
		return "Person in need"
	}
	return "Responder"
}

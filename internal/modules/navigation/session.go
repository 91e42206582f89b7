// README: Navigation session: self location, participant polling, stabilized route and map region.
package navigation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"secureher/internal/apiclient"
	"secureher/internal/device"
	"secureher/internal/geo"
	"secureher/internal/maps"
)

var ErrAlreadyStarted = errors.New("navigation session already started")

type Session struct {
	params Params
	deps   Deps
	opts   Options

	mu            sync.Mutex
	phase         Phase
	status        ConnectionStatus
	self          *geo.MapLocation
	participant   *geo.MapLocation
	participantAt *time.Time
	stableOrigin  *geo.MapLocation
	stableDest    *geo.MapLocation
	mapLoaded     bool
	routing       bool
	route         *maps.Route
}

func NewSession(params Params, deps Deps, opts Options) *Session {
	if deps.Notifier == nil {
		deps.Notifier = LogNotifier{}
	}
	if deps.Directions == nil {
		deps.Directions = maps.StraightLine{}
	}
	return &Session{
		params: params,
		deps:   deps,
		opts:   opts,
		phase:  PhaseIdle,
		status: StatusConnecting,
	}
}

// Run initializes the session and then polls the participant every
// PollInterval until ctx ends. With a zero interval it only initializes and
// waits; updates then come from Reload.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Init(ctx); err != nil {
		return err
	}
	if s.opts.PollInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Init runs the mount sequence: self location, push, one participant fetch.
// The session becomes Ready whatever the individual outcomes, and the first
// stable origin/destination pair is stamped from what was gathered.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.phase = PhaseInitializing
	s.mu.Unlock()
	s.emit()

	s.refresh(ctx)

	s.mu.Lock()
	s.stampLocked()
	s.phase = PhaseReady
	s.mu.Unlock()

	s.renderDirections(ctx)
	s.emit()
	return nil
}

// Reload re-runs the init sequence and restamps the route endpoints. It is the
// only way the route overlay moves after Init. A reload requested while one is
// already running, or before Init finished, is ignored and reports false.
func (s *Session) Reload(ctx context.Context) bool {
	s.mu.Lock()
	if s.phase != PhaseReady {
		s.mu.Unlock()
		return false
	}
	s.phase = PhaseReloading
	s.mu.Unlock()
	s.emit()

	s.refresh(ctx)

	s.mu.Lock()
	s.stampLocked()
	s.phase = PhaseReady
	s.mu.Unlock()

	s.renderDirections(ctx)
	s.emit()
	return true
}

// Poll fetches the participant location once. It never moves the route.
func (s *Session) Poll(ctx context.Context) {
	s.fetchParticipant(ctx)
	s.emit()
}

// SetMapLoaded marks the map as ready to draw the route overlay.
func (s *Session) SetMapLoaded(ctx context.Context) {
	s.mu.Lock()
	s.mapLoaded = true
	s.mu.Unlock()
	s.renderDirections(ctx)
	s.emit()
}

func (s *Session) refresh(ctx context.Context) {
	fix, err := s.deps.Self.GetCurrentLocation(ctx)
	switch {
	case errors.Is(err, device.ErrPermissionDenied):
		s.deps.Notifier.Notify("Permission Denied", "Location permission is required to share your position.")
	case err != nil || fix == nil:
		s.deps.Notifier.Notify("Location Error", "Could not get your current location.")
	default:
		coords := fix.Coords
		s.mu.Lock()
		s.self = &coords
		s.mu.Unlock()

		if err := s.deps.API.UpdateLocation(ctx, coords.Latitude, coords.Longitude); err != nil {
			log.Printf("[NAV] alert %s: pushing own location failed: %v", s.params.AlertID, err)
		}
	}

	s.fetchParticipant(ctx)
}

func (s *Session) fetchParticipant(ctx context.Context) {
	loc, err := s.deps.Participants.GetAlertParticipantLocation(ctx, s.params.AlertID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = deriveStatus(loc, err)
	if err != nil {
		log.Printf("[NAV] alert %s: participant poll failed: %v", s.params.AlertID, err)
		return
	}
	if p, ok := loc.Point(); ok {
		m := geo.FromPoint(p)
		s.participant = &m
		s.participantAt = loc.LastUpdate
	}
}

// deriveStatus maps one poll outcome to a connection status. A successful
// poll without coordinates means the participant has not shared yet.
func deriveStatus(loc *apiclient.ParticipantLocation, err error) ConnectionStatus {
	switch {
	case err != nil:
		return StatusDisconnected
	case loc.Shared():
		return StatusConnected
	default:
		return StatusConnecting
	}
}

func (s *Session) stampLocked() {
	if s.self != nil {
		o := *s.self
		s.stableOrigin = &o
	}
	d := s.destinationLocked()
	s.stableDest = &d
}

func (s *Session) destinationLocked() geo.MapLocation {
	if s.participant != nil {
		return *s.participant
	}
	return s.params.Target
}

// renderDirections asks the provider for a route only when the map is loaded,
// both stable endpoints exist, and they differ from the last rendered pair.
// A call made while a request is in flight is folded into that request: the
// running render re-checks the stable pair when the provider returns and
// routes again if it moved.
func (s *Session) renderDirections(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routing {
		return
	}
	s.routing = true
	defer func() { s.routing = false }()

	for {
		if !s.mapLoaded || s.stableOrigin == nil || s.stableDest == nil {
			return
		}
		origin, dest := *s.stableOrigin, *s.stableDest
		if s.route != nil && len(s.route.Points) > 0 && s.routedLocked(origin, dest) {
			return
		}
		s.mu.Unlock()
		r, err := s.deps.Directions.Route(ctx, origin, dest)
		s.mu.Lock()

		moved := !s.stableOrigin.SamePoint(origin) || !s.stableDest.SamePoint(dest)
		if err != nil {
			log.Printf("[NAV] alert %s: %s directions failed: %v", s.params.AlertID, s.deps.Directions.Name(), err)
			if !moved {
				return
			}
			continue
		}
		if moved {
			continue
		}
		r.Points = endpoints(r.Points, origin, dest)
		s.route = &r
	}
}

// routedLocked reports whether the current route was drawn for this pair.
func (s *Session) routedLocked(origin, dest geo.MapLocation) bool {
	pts := s.route.Points
	return pts[0].SamePoint(origin) && pts[len(pts)-1].SamePoint(dest)
}

// endpoints pins the route's first and last points to the requested pair so
// later comparisons are exact even when the provider snaps to roads.
func endpoints(points []geo.MapLocation, origin, dest geo.MapLocation) []geo.MapLocation {
	out := make([]geo.MapLocation, 0, len(points)+2)
	out = append(out, origin)
	if len(points) > 2 {
		out = append(out, points[1:len(points)-1]...)
	}
	return append(out, dest)
}

// View returns a snapshot of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Params:            s.params,
		Phase:             s.phase,
		Status:            s.status,
		Loading:           s.phase == PhaseIdle || s.phase == PhaseInitializing,
		Self:              copyLoc(s.self),
		Participant:       copyLoc(s.participant),
		StableOrigin:      copyLoc(s.stableOrigin),
		StableDestination: copyLoc(s.stableDest),
		MapLoaded:         s.mapLoaded,
		Region:            s.regionLocked(),
		Markers:           s.markersLocked(),
	}
	if s.participantAt != nil {
		at := *s.participantAt
		v.ParticipantAt = &at
	}
	if s.route != nil {
		r := *s.route
		r.Points = append([]geo.MapLocation(nil), s.route.Points...)
		v.Route = &r
	}
	return v
}

func (s *Session) regionLocked() geo.MapLocation {
	switch {
	case s.self != nil && s.participant != nil:
		r, _ := geo.BoundingRegion(*s.self, *s.participant)
		return r
	case s.self != nil:
		return geo.CenteredRegion(*s.self)
	default:
		return geo.CenteredRegion(s.params.Target)
	}
}

func (s *Session) markersLocked() []Marker {
	var out []Marker
	if s.self != nil {
		out = append(out, Marker{Kind: MarkerSelf, Title: "You", Coords: *s.self})
	}
	out = append(out, Marker{Kind: MarkerTarget, Title: "Target Location", Coords: s.params.Target})
	if s.participant != nil {
		out = append(out, Marker{Kind: MarkerParticipant, Title: participantTitle(s.params.Role), Coords: *s.participant})
	}
	return out
}

func (s *Session) emit() {
	if s.opts.OnChange == nil {
		return
	}
	s.opts.OnChange(s.View())
}

func copyLoc(p *geo.MapLocation) *geo.MapLocation {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// README: Location service: device fixes, geocoding pass-through and the periodic push to the API.
package tracking

import (
	"context"
	"log"
	"sync"
	"time"

	"secureher/internal/device"
	"secureher/internal/geo"
	"secureher/internal/localstore"
	"secureher/internal/maps"
)

type Service struct {
	locator  device.Locator
	geocoder maps.Geocoder
	api      Uploader
	cache    Cache
	cfg      Config

	now       func() time.Time
	newTicker func(time.Duration) Ticker

	mu           sync.Mutex
	tracking     bool
	gen          uint64 // bumped by every StopTracking
	cancel       context.CancelFunc
	done         chan struct{}
	watchLocator device.Locator
}

// NewService wires a location service. geocoder may be nil, in which case the
// geocoding pass-throughs always report no result.
func NewService(locator device.Locator, geocoder maps.Geocoder, api Uploader, cache Cache, cfg Config) *Service {
	return &Service{
		locator:   locator,
		geocoder:  geocoder,
		api:       api,
		cache:     cache,
		cfg:       cfg,
		now:       time.Now,
		newTicker: newStdTicker,
	}
}

// GetCurrentLocation requests permission and takes one fix. A refused
// permission returns device.ErrPermissionDenied; any other platform failure
// is logged and yields a nil fix with no error.
func (s *Service) GetCurrentLocation(ctx context.Context) (*geo.LocationData, error) {
	granted, err := s.locator.RequestPermission(ctx)
	if err != nil {
		log.Printf("[TRACKING] permission request failed: %v", err)
		return nil, nil
	}
	if !granted {
		return nil, device.ErrPermissionDenied
	}
	fix, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		log.Printf("[TRACKING] current position failed: %v", err)
		return nil, nil
	}
	return &fix, nil
}

// AddressFromCoordinates returns the first reverse-geocoded address.
func (s *Service) AddressFromCoordinates(ctx context.Context, lat, lng float64) (maps.GeocodingResult, bool) {
	if s.geocoder == nil {
		return maps.GeocodingResult{}, false
	}
	res, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		log.Printf("[TRACKING] reverse geocoding failed: %v", err)
		return maps.GeocodingResult{}, false
	}
	if len(res) == 0 {
		return maps.GeocodingResult{}, false
	}
	return res[0], true
}

// CoordinatesFromAddress returns the first forward-geocoded match.
func (s *Service) CoordinatesFromAddress(ctx context.Context, address string) (geo.MapLocation, bool) {
	if s.geocoder == nil || address == "" {
		return geo.MapLocation{}, false
	}
	res, err := s.geocoder.Forward(ctx, address)
	if err != nil {
		log.Printf("[TRACKING] geocoding failed: %v", err)
		return geo.MapLocation{}, false
	}
	if len(res) == 0 {
		return geo.MapLocation{}, false
	}
	return res[0].Coords, true
}

// IsTracking reports whether the periodic push loop is running.
func (s *Service) IsTracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking
}

// StartTracking begins the periodic push. It is idempotent: a call while
// already tracking logs and returns true without starting a second loop. A
// refused permission leaves tracking off and returns false.
func (s *Service) StartTracking(ctx context.Context) bool {
	s.mu.Lock()
	if s.tracking {
		s.mu.Unlock()
		log.Printf("[TRACKING] already tracking")
		return true
	}
	// Claim the slot before the permission round-trip so a concurrent call
	// cannot start a second loop.
	s.tracking = true
	gen := s.gen
	s.mu.Unlock()

	granted, err := s.locator.RequestPermission(ctx)
	if err != nil || !granted {
		log.Printf("[TRACKING] permission not granted, tracking disabled (err=%v)", err)
		s.mu.Lock()
		if s.gen == gen {
			s.tracking = false
		}
		s.mu.Unlock()
		return false
	}
	if !s.current(gen) {
		return false
	}

	if _, err := s.UpdateLocationToServer(ctx); err != nil {
		log.Printf("[TRACKING] initial push failed: %v", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.mu.Lock()
	if s.gen != gen || !s.tracking {
		// StopTracking ran while this call was in flight; a later start owns the slot.
		s.mu.Unlock()
		cancel()
		return false
	}
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(loopCtx, done)
	log.Printf("[TRACKING] started, interval=%s", s.cfg.PushInterval)
	return true
}

// StopTracking cancels the push loop and waits for it to exit. Safe to call
// when not tracking.
func (s *Service) StopTracking() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	wasTracking := s.tracking
	s.tracking = false
	s.gen++
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if wasTracking {
		log.Printf("[TRACKING] stopped")
	}
}

func (s *Service) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.tracking
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := s.newTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if _, err := s.UpdateLocationToServer(ctx); err != nil {
				log.Printf("[TRACKING] periodic push failed: %v", err)
			}
		}
	}
}

// ManualUpdate performs one forced push and reports the outcome for display.
func (s *Service) ManualUpdate(ctx context.Context) ManualResult {
	granted, err := s.locator.RequestPermission(ctx)
	if err != nil || !granted {
		return ManualResult{Success: false, Message: "Location permission is required to share your location"}
	}
	fix, err := s.push(ctx, true)
	if err != nil {
		log.Printf("[TRACKING] manual push failed: %v", err)
		return ManualResult{Success: false, Message: "Failed to update location: " + err.Error()}
	}
	return ManualResult{Success: true, Message: "Location updated", Location: fix}
}

// UpdateLocationToServer takes a fix and pushes it when it differs enough from
// the cached baseline. It reports whether the API was called successfully.
func (s *Service) UpdateLocationToServer(ctx context.Context) (bool, error) {
	fix, err := s.push(ctx, false)
	if err != nil {
		return false, err
	}
	return fix != nil, nil
}

// push returns the pushed fix, or nil when the movement gate skipped it. The
// cache is only written after the API accepted the fix.
func (s *Service) push(ctx context.Context, force bool) (*geo.LocationData, error) {
	fix, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		return nil, err
	}

	if !force {
		last, err := s.cache.LastLocation(ctx)
		if err != nil {
			log.Printf("[TRACKING] reading last location: %v", err)
		}
		if last != nil && !s.significant(last, fix) {
			return nil, nil
		}
	}

	if err := s.api.UpdateLocation(ctx, fix.Coords.Latitude, fix.Coords.Longitude); err != nil {
		return nil, err
	}

	err = s.cache.SaveLastLocation(ctx, localstore.LastLocation{
		Latitude:  fix.Coords.Latitude,
		Longitude: fix.Coords.Longitude,
		Timestamp: s.now().UnixMilli(),
	})
	if err != nil {
		log.Printf("[TRACKING] saving last location: %v", err)
	}
	return &fix, nil
}

func (s *Service) significant(last *localstore.LastLocation, fix geo.LocationData) bool {
	moved := geo.DistanceKm(last.Latitude, last.Longitude, fix.Coords.Latitude, fix.Coords.Longitude)
	elapsed := s.now().Sub(last.Time())
	return moved > s.cfg.MinMovementKm || elapsed > s.cfg.MaxStaleness
}

// README: Location watch: distance-filtered fixes delivered to a callback until cancelled.
package tracking

import (
	"context"

	"secureher/internal/device"
	"secureher/internal/geo"
)

// Subscription is a running WatchLocation.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops delivery and waits for the watcher to exit.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// SetWatchLocator gives WatchLocation its own location source, so sampling for
// the watch does not consume fixes meant for the push loop.
func (s *Service) SetWatchLocator(l device.Locator) {
	s.mu.Lock()
	s.watchLocator = l
	s.mu.Unlock()
}

func (s *Service) watchSource() device.Locator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchLocator != nil {
		return s.watchLocator
	}
	return s.locator
}

// WatchLocation samples the device every WatchInterval and calls onFix when
// the position moved at least WatchDistanceMeters since the last delivered
// fix. The first fix is always delivered. onErr, when non-nil, receives
// sampling failures; the watch keeps running after them.
func (s *Service) WatchLocation(ctx context.Context, onFix func(geo.LocationData), onErr func(error)) (*Subscription, error) {
	granted, err := s.watchSource().RequestPermission(ctx)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, device.ErrPermissionDenied
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go s.watch(watchCtx, sub.done, onFix, onErr)
	return sub, nil
}

func (s *Service) watch(ctx context.Context, done chan struct{}, onFix func(geo.LocationData), onErr func(error)) {
	defer close(done)
	ticker := s.newTicker(s.cfg.WatchInterval)
	defer ticker.Stop()

	var last *geo.MapLocation
	sample := func() {
		fix, err := s.watchSource().CurrentPosition(ctx)
		if err != nil {
			if onErr != nil && ctx.Err() == nil {
				onErr(err)
			}
			return
		}
		if last != nil && geo.Between(*last, fix.Coords)*1000 < s.cfg.WatchDistanceMeters {
			return
		}
		coords := fix.Coords
		last = &coords
		onFix(fix)
	}

	sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			sample()
		}
	}
}

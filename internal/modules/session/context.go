// README: Location context binds tracking to auth state and guards manual reloads.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"secureher/internal/modules/tracking"
)

var ErrReloadInProgress = errors.New("location reload already in progress")

// Tracker is the slice of tracking.Service the context drives.
type Tracker interface {
	StartTracking(ctx context.Context) bool
	StopTracking()
	IsTracking() bool
	ManualUpdate(ctx context.Context) tracking.ManualResult
}

type LocationContext struct {
	tracker Tracker
	auth    *Auth
	now     func() time.Time

	updating atomic.Bool

	mu         sync.Mutex
	active     bool
	lastUpdate time.Time
}

func NewLocationContext(tracker Tracker, auth *Auth) *LocationContext {
	return &LocationContext{tracker: tracker, auth: auth, now: time.Now}
}

// Run follows auth changes until ctx ends: tracking starts when a user and a
// token are both present and stops when either goes away. Tracking is stopped
// on return.
func (c *LocationContext) Run(ctx context.Context) {
	states, unsubscribe := c.auth.Subscribe()
	defer unsubscribe()
	defer c.deactivate()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-states:
			c.apply(ctx, s)
		}
	}
}

func (c *LocationContext) apply(ctx context.Context, s AuthState) {
	if s.Authenticated() {
		c.mu.Lock()
		already := c.active
		c.mu.Unlock()
		if already {
			return
		}
		started := c.tracker.StartTracking(ctx)
		c.mu.Lock()
		c.active = started
		c.mu.Unlock()
		log.Printf("[SESSION] user %s signed in, tracking=%v", s.UserID, started)
		return
	}
	c.deactivate()
}

func (c *LocationContext) deactivate() {
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	c.mu.Unlock()
	if wasActive {
		c.tracker.StopTracking()
		log.Printf("[SESSION] signed out, tracking stopped")
	}
}

// Active reports whether the context currently owns a running tracker.
func (c *LocationContext) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// IsManuallyUpdating is true while a manual reload is in flight.
func (c *LocationContext) IsManuallyUpdating() bool {
	return c.updating.Load()
}

// LastLocationUpdate is the time of the last successful manual reload.
func (c *LocationContext) LastLocationUpdate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdate
}

// ManualLocationReload pushes the current location once. A call made while
// another is still running returns ErrReloadInProgress without touching the
// tracker.
func (c *LocationContext) ManualLocationReload(ctx context.Context) (tracking.ManualResult, error) {
	if !c.updating.CompareAndSwap(false, true) {
		return tracking.ManualResult{Success: false, Message: "Location update already in progress"}, ErrReloadInProgress
	}
	defer c.updating.Store(false)

	res := c.tracker.ManualUpdate(ctx)
	if res.Success {
		c.mu.Lock()
		c.lastUpdate = c.now()
		c.mu.Unlock()
	}
	return res, nil
}

package device

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"secureher/internal/geo"
)

// ReplayLocator plays back a recorded track. Each CurrentPosition call
// advances one fix; once the track is exhausted the last fix repeats.
type ReplayLocator struct {
	mu      sync.Mutex
	fixes   []geo.MapLocation
	next    int
	granted bool
	now     func() time.Time
}

// NewReplayLocator returns a locator over fixes. granted controls the answer
// to RequestPermission.
func NewReplayLocator(fixes []geo.MapLocation, granted bool) *ReplayLocator {
	return &ReplayLocator{fixes: fixes, granted: granted, now: time.Now}
}

// NewStaticLocator always reports the same position.
func NewStaticLocator(p geo.MapLocation, granted bool) *ReplayLocator {
	return NewReplayLocator([]geo.MapLocation{p}, granted)
}

// LoadReplayFile reads a JSON array of {"latitude":..,"longitude":..} objects.
func LoadReplayFile(path string, granted bool) (*ReplayLocator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var fixes []geo.MapLocation
	if err := json.Unmarshal(data, &fixes); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(fixes) == 0 {
		return nil, fmt.Errorf("%s contains no fixes", path)
	}
	return NewReplayLocator(fixes, granted), nil
}

// Fork returns a locator over the same track with its own cursor, starting
// where l currently is. Two consumers sampling one track each see every fix.
func (l *ReplayLocator) Fork() *ReplayLocator {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &ReplayLocator{fixes: l.fixes, next: l.next, granted: l.granted, now: l.now}
}

func (l *ReplayLocator) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.granted, nil
}

// SetPermission flips the simulated permission answer.
func (l *ReplayLocator) SetPermission(granted bool) {
	l.mu.Lock()
	l.granted = granted
	l.mu.Unlock()
}

func (l *ReplayLocator) CurrentPosition(ctx context.Context) (geo.LocationData, error) {
	if err := ctx.Err(); err != nil {
		return geo.LocationData{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.granted {
		return geo.LocationData{}, ErrPermissionDenied
	}
	if len(l.fixes) == 0 {
		return geo.LocationData{}, ErrNoFix
	}
	fix := l.fixes[l.next]
	if l.next < len(l.fixes)-1 {
		l.next++
	}
	return geo.LocationData{Coords: fix, Timestamp: l.now()}, nil
}

// README: Location service stores pushed positions and answers latest/nearby queries.
package location

import (
	"context"
	"errors"
	"log"
	"time"

	"secureher/internal/types"
)

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrBadRequest      = errors.New("bad request")
)

const (
	DefaultNearbyRadiusKm = 3.0
	maxNearby             = 50
	historyLimit          = 100
)

// Repository is the persistence surface the service needs; *Store implements it.
type Repository interface {
	SetLatest(ctx context.Context, l Latest) error
	GetLatest(ctx context.Context, id types.ID) (*Latest, error)
	Nearby(ctx context.Context, center types.Point, radiusKm float64, limit int) ([]Nearby, error)
	AppendSnapshot(ctx context.Context, snap Snapshot) error
	History(ctx context.Context, id types.ID, limit int) ([]Snapshot, error)
}

type Service struct {
	store Repository
	now   func() time.Time
}

func NewService(store Repository) *Service {
	return &Service{store: store, now: time.Now}
}

// Update records u as the user's latest position. A failed history write is
// logged and does not fail the update.
func (s *Service) Update(ctx context.Context, u Update) (*Latest, error) {
	if u.UserID == "" {
		return nil, ErrBadRequest
	}
	if !u.Position.Valid() {
		return nil, ErrInvalidPosition
	}
	l := Latest{UserID: u.UserID, Position: u.Position, UpdatedAt: s.now().UTC()}
	if err := s.store.SetLatest(ctx, l); err != nil {
		return nil, err
	}
	if err := s.FlushSnapshot(ctx, l); err != nil {
		log.Printf("[RELAY] snapshot for %s failed: %v", u.UserID, err)
	}
	return &l, nil
}

func (s *Service) FlushSnapshot(ctx context.Context, l Latest) error {
	return s.store.AppendSnapshot(ctx, Snapshot{
		UserID:     l.UserID,
		Position:   l.Position,
		RecordedAt: l.UpdatedAt,
	})
}

// Latest returns nil when the user is not currently sharing.
func (s *Service) Latest(ctx context.Context, id types.ID) (*Latest, error) {
	if id == "" {
		return nil, nil
	}
	return s.store.GetLatest(ctx, id)
}

// Nearby lists sharing users around center, excluding the caller.
func (s *Service) Nearby(ctx context.Context, caller types.ID, center types.Point, radiusKm float64) ([]Nearby, error) {
	if !center.Valid() {
		return nil, ErrInvalidPosition
	}
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	found, err := s.store.Nearby(ctx, center, radiusKm, maxNearby+1)
	if err != nil && found == nil {
		return nil, err
	}
	if err != nil {
		log.Printf("[RELAY] nearby: %v", err)
	}
	out := make([]Nearby, 0, len(found))
	for _, n := range found {
		if n.UserID == caller {
			continue
		}
		out = append(out, n)
		if len(out) == maxNearby {
			break
		}
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, id types.ID) ([]Snapshot, error) {
	return s.store.History(ctx, id, historyLimit)
}

// README: Alert service implements the SOS lifecycle and participant checks.
package alert

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"secureher/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("alert not found")
	ErrConflict     = errors.New("alert state conflict")
	ErrActiveAlert  = errors.New("user has an open alert")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("not a participant of this alert")
)

const (
	maxMessageLen = 500
	openListLimit = 50
)

// Repository is the persistence surface the service needs; *Store implements it.
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	Get(ctx context.Context, id types.ID) (*Alert, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, responderID *types.ID) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	HasOpenByUser(ctx context.Context, userID types.ID) (bool, error)
	ListOpen(ctx context.Context, limit int) ([]Alert, error)
}

type Service struct {
	store Repository
	now   func() time.Time
}

func NewService(store Repository) *Service {
	return &Service{store: store, now: time.Now}
}

type CreateCommand struct {
	UserID  types.ID
	Origin  types.Point
	Message string
}

type AcceptCommand struct {
	AlertID     types.ID
	ResponderID types.ID
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Alert, error) {
	msg := strings.TrimSpace(cmd.Message)
	if cmd.UserID == "" || !cmd.Origin.Valid() || len(msg) > maxMessageLen {
		return nil, ErrBadRequest
	}
	open, err := s.store.HasOpenByUser(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrActiveAlert
	}

	a := &Alert{
		ID:        types.ID(uuid.NewString()),
		UserID:    cmd.UserID,
		Status:    StatusActive,
		Origin:    cmd.Origin,
		Message:   msg,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, a.ID, StatusNone, StatusActive, &cmd.UserID)
	log.Printf("[RELAY] alert %s raised by %s", a.ID, a.UserID)
	return a, nil
}

// Get returns the alert if caller takes part in it.
func (s *Service) Get(ctx context.Context, id, caller types.ID) (*Alert, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Participant(caller) {
		return nil, ErrForbidden
	}
	return a, nil
}

// ListOpen returns alerts still waiting for a responder.
func (s *Service) ListOpen(ctx context.Context) ([]Alert, error) {
	return s.store.ListOpen(ctx, openListLimit)
}

func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Alert, error) {
	if cmd.AlertID == "" || cmd.ResponderID == "" {
		return nil, ErrBadRequest
	}
	a, err := s.store.Get(ctx, cmd.AlertID)
	if err != nil {
		return nil, err
	}
	if a.UserID == cmd.ResponderID {
		return nil, ErrForbidden
	}
	return s.transition(ctx, a, StatusAccepted, &cmd.ResponderID, cmd.ResponderID)
}

// Resolve closes an accepted alert; either participant may do it.
func (s *Service) Resolve(ctx context.Context, id, caller types.ID) (*Alert, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Participant(caller) {
		return nil, ErrForbidden
	}
	return s.transition(ctx, a, StatusResolved, nil, caller)
}

// Cancel withdraws an open alert; only its owner may do it.
func (s *Service) Cancel(ctx context.Context, id, caller types.ID) (*Alert, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != caller {
		return nil, ErrForbidden
	}
	return s.transition(ctx, a, StatusCancelled, nil, caller)
}

// Counterpart returns the other participant of the alert for caller. The
// result is "" while an alert owner is still waiting for a responder.
func (s *Service) Counterpart(ctx context.Context, id, caller types.ID) (types.ID, error) {
	a, err := s.Get(ctx, id, caller)
	if err != nil {
		return "", err
	}
	return a.Counterpart(caller), nil
}

func (s *Service) transition(ctx context.Context, a *Alert, to Status, responderID *types.ID, actor types.ID) (*Alert, error) {
	if !CanTransition(a.Status, to) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, a.ID, a.Status, to, a.StatusVersion, responderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendEvent(ctx, a.ID, a.Status, to, &actor)
	log.Printf("[RELAY] alert %s %s -> %s by %s", a.ID, a.Status, to, actor)
	return s.store.Get(ctx, a.ID)
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actor *types.ID) {
	err := s.store.AppendEvent(ctx, &Event{
		AlertID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		log.Printf("[RELAY] alert %s: recording event failed: %v", id, err)
	}
}

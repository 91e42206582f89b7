// README: Alert store backed by PostgreSQL.
package alert

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"secureher/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, a *Alert) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO alerts (
			id, user_id, responder_id, status, status_version,
			origin_lat, origin_lng, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(a.ID),
		string(a.UserID),
		toStringPtr(a.ResponderID),
		string(a.Status),
		a.StatusVersion,
		a.Origin.Lat, a.Origin.Lng,
		a.Message,
		a.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Alert, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, responder_id, status, status_version,
		       origin_lat, origin_lng, message,
		       created_at, accepted_at, resolved_at, cancelled_at
		FROM alerts
		WHERE id = $1`, string(id),
	)

	var a Alert
	var responderID *string
	err := row.Scan(
		&a.ID, &a.UserID, &responderID, &a.Status, &a.StatusVersion,
		&a.Origin.Lat, &a.Origin.Lng, &a.Message,
		&a.CreatedAt, &a.AcceptedAt, &a.ResolvedAt, &a.CancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if responderID != nil {
		r := types.ID(*responderID)
		a.ResponderID = &r
	}
	return &a, nil
}

// UpdateStatus moves the alert from -> to only if nobody else changed it since
// version was read. It reports false on a lost race.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, responderID *types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE alerts
		SET status = $1,
		    status_version = status_version + 1,
		    responder_id = COALESCE($2, responder_id),
		    accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
		    resolved_at = CASE WHEN $1 = 'resolved' THEN NOW() ELSE resolved_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		toStringPtr(responderID),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO alert_state_events (
			alert_id, from_status, to_status, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5)`,
		string(e.AlertID),
		string(e.FromStatus),
		string(e.ToStatus),
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) HasOpenByUser(ctx context.Context, userID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE user_id = $1
			  AND status IN ('active', 'accepted')
		)`, string(userID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListOpen returns active alerts, oldest first, for responders to pick up.
func (s *Store) ListOpen(ctx context.Context, limit int) ([]Alert, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, responder_id, status, status_version,
		       origin_lat, origin_lng, message,
		       created_at, accepted_at, resolved_at, cancelled_at
		FROM alerts
		WHERE status = 'active'
		ORDER BY created_at ASC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		var responderID *string
		if err := rows.Scan(
			&a.ID, &a.UserID, &responderID, &a.Status, &a.StatusVersion,
			&a.Origin.Lat, &a.Origin.Lng, &a.Message,
			&a.CreatedAt, &a.AcceptedAt, &a.ResolvedAt, &a.CancelledAt,
		); err != nil {
			return nil, err
		}
		if responderID != nil {
			r := types.ID(*responderID)
			a.ResponderID = &r
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

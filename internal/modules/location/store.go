// README: Location store backed by Redis (latest hash + GEO set) and Postgres snapshots.
package location

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"secureher/internal/types"
)

const (
	latestKeyPrefix = "location:latest:"
	geoKey          = "location:geo"
)

func latestKey(id types.ID) string {
	return latestKeyPrefix + string(id)
}

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
	ttl   time.Duration
}

// NewStore returns a store whose latest-location entries expire after ttl.
// db may be nil, in which case snapshots are not recorded.
func NewStore(db *pgxpool.Pool, redis *redis.Client, ttl time.Duration) *Store {
	return &Store{db: db, redis: redis, ttl: ttl}
}

func (s *Store) SetLatest(ctx context.Context, l Latest) error {
	key := latestKey(l.UserID)
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"lat":        strconv.FormatFloat(l.Position.Lat, 'f', -1, 64),
		"lng":        strconv.FormatFloat(l.Position.Lng, 'f', -1, 64),
		"updated_ms": l.UpdatedAt.UnixMilli(),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      string(l.UserID),
		Longitude: l.Position.Lng,
		Latitude:  l.Position.Lat,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set latest location for %s: %w", l.UserID, err)
	}
	return nil
}

// GetLatest returns nil when the user has no unexpired location.
func (s *Store) GetLatest(ctx context.Context, id types.ID) (*Latest, error) {
	vals, err := s.redis.HGetAll(ctx, latestKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get latest location for %s: %w", id, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return parseLatest(id, vals)
}

func parseLatest(id types.ID, vals map[string]string) (*Latest, error) {
	lat, err := strconv.ParseFloat(vals["lat"], 64)
	if err != nil {
		return nil, fmt.Errorf("latest location for %s: bad lat: %w", id, err)
	}
	lng, err := strconv.ParseFloat(vals["lng"], 64)
	if err != nil {
		return nil, fmt.Errorf("latest location for %s: bad lng: %w", id, err)
	}
	ms, err := strconv.ParseInt(vals["updated_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("latest location for %s: bad timestamp: %w", id, err)
	}
	return &Latest{
		UserID:    id,
		Position:  types.Point{Lat: lat, Lng: lng},
		UpdatedAt: time.UnixMilli(ms).UTC(),
	}, nil
}

// Nearby searches the GEO set around center, nearest first. Members whose
// latest entry has expired are dropped from the set and from the result.
func (s *Store) Nearby(ctx context.Context, center types.Point, radiusKm float64, limit int) ([]Nearby, error) {
	locs, err := s.redis.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}
	if len(locs) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	exists := make([]*redis.IntCmd, len(locs))
	for i, l := range locs {
		exists[i] = pipe.Exists(ctx, latestKey(types.ID(l.Name)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("check latest entries: %w", err)
	}

	out := make([]Nearby, 0, len(locs))
	var stale []interface{}
	for i, l := range locs {
		if exists[i].Val() == 0 {
			stale = append(stale, l.Name)
			continue
		}
		out = append(out, Nearby{
			UserID:     types.ID(l.Name),
			Position:   types.Point{Lat: l.Latitude, Lng: l.Longitude},
			DistanceKm: l.Dist,
		})
	}
	if len(stale) > 0 {
		if err := s.redis.ZRem(ctx, geoKey, stale...).Err(); err != nil {
			return out, fmt.Errorf("prune geo set: %w", err)
		}
	}
	return out, nil
}

func (s *Store) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO location_snapshots (user_id, lat, lng, recorded_at)
		VALUES ($1, $2, $3, $4)`,
		string(snap.UserID), snap.Position.Lat, snap.Position.Lng, snap.RecordedAt,
	)
	return err
}

// History returns the user's most recent snapshots, newest first.
func (s *Store) History(ctx context.Context, id types.ID, limit int) ([]Snapshot, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, lat, lng, recorded_at
		FROM location_snapshots
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`, string(id), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.UserID, &snap.Position.Lat, &snap.Position.Lng, &snap.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

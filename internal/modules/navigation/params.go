// README: Route parameter validation for a navigation session.
package navigation

import (
	"encoding/json"
	"fmt"
	"strings"

	"secureher/internal/geo"
	"secureher/internal/types"
)

// Params identifies one navigation session.
type Params struct {
	AlertID string
	Role    types.Role
	Target  geo.MapLocation
}

// ParamsError reports an unusable route parameter. Callers show it as a
// guided error instead of opening the map.
type ParamsError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ParamsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid navigation parameter %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid navigation parameter %s: %s", e.Field, e.Reason)
}

func (e *ParamsError) Unwrap() error { return e.Err }

type targetJSON struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ParseParams validates the raw alertId, userRole and serialized
// targetLocation parameters.
func ParseParams(alertID, userRole, targetLocation string) (Params, error) {
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return Params{}, &ParamsError{Field: "alertId", Reason: "missing"}
	}

	role := types.Role(strings.ToUpper(strings.TrimSpace(userRole)))
	if !role.Valid() {
		return Params{}, &ParamsError{Field: "userRole", Reason: fmt.Sprintf("unknown role %q", userRole)}
	}

	if strings.TrimSpace(targetLocation) == "" {
		return Params{}, &ParamsError{Field: "targetLocation", Reason: "missing"}
	}
	var t targetJSON
	if err := json.Unmarshal([]byte(targetLocation), &t); err != nil {
		return Params{}, &ParamsError{Field: "targetLocation", Reason: "not valid JSON", Err: err}
	}
	if t.Latitude == nil || t.Longitude == nil {
		return Params{}, &ParamsError{Field: "targetLocation", Reason: "latitude and longitude are required"}
	}
	p := types.Point{Lat: *t.Latitude, Lng: *t.Longitude}
	if !p.Valid() {
		return Params{}, &ParamsError{Field: "targetLocation", Reason: "coordinates out of range"}
	}

	return Params{AlertID: alertID, Role: role, Target: geo.FromPoint(p)}, nil
}

// README: Common value objects shared by the agent and the relay.
package types

type ID string

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether p lies inside the WGS84 coordinate range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Role identifies which side of an alert a participant is on.
type Role string

const (
	RoleUser      Role = "USER"
	RoleResponder Role = "RESPONDER"
)

// Counterpart returns the role on the other side of an alert.
func (r Role) Counterpart() Role {
	if r == RoleResponder {
		return RoleUser
	}
	return RoleResponder
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleResponder
}

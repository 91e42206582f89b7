package navigation

import (
	"errors"
	"testing"

	"secureher/internal/types"
)

func TestParseParams_Valid(t *testing.T) {
	p, err := ParseParams("a1", "user", `{"latitude":23.81,"longitude":90.41}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AlertID != "a1" || p.Role != types.RoleUser {
		t.Errorf("unexpected params: %+v", p)
	}
	if p.Target.Latitude != 23.81 || p.Target.Longitude != 90.41 {
		t.Errorf("unexpected target: %+v", p.Target)
	}
}

func TestParseParams_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		alertID   string
		role      string
		target    string
		wantField string
	}{
		{"missing alert", "", "USER", `{"latitude":1,"longitude":2}`, "alertId"},
		{"unknown role", "a1", "ADMIN", `{"latitude":1,"longitude":2}`, "userRole"},
		{"empty target", "a1", "USER", "", "targetLocation"},
		{"broken json", "a1", "USER", `{"latitude":1,`, "targetLocation"},
		{"missing longitude", "a1", "USER", `{"latitude":1}`, "targetLocation"},
		{"out of range", "a1", "RESPONDER", `{"latitude":91,"longitude":2}`, "targetLocation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseParams(tc.alertID, tc.role, tc.target)
			var pe *ParamsError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParamsError, got %v", err)
			}
			if pe.Field != tc.wantField {
				t.Errorf("field = %s, want %s", pe.Field, tc.wantField)
			}
		})
	}
}

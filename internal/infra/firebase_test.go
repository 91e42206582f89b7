package infra

import (
	"context"
	"errors"
	"testing"
)

func TestDevVerifier(t *testing.T) {
	cases := []struct {
		token    string
		wantUID  string
		wantRole string
		wantErr  error
	}{
		{"u1", "u1", "", nil},
		{"r1:RESPONDER", "r1", "responder", nil},
		{"", "", "", ErrInvalidToken},
		{":responder", "", "", ErrInvalidToken},
	}
	for _, tc := range cases {
		tok, err := DevVerifier{}.VerifyIDToken(context.Background(), tc.token)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%q: err = %v, want %v", tc.token, err, tc.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if tok.UID != tc.wantUID || tok.Role() != tc.wantRole {
			t.Errorf("%q: got uid=%s role=%s", tc.token, tok.UID, tok.Role())
		}
	}
}

func TestFirebaseToken_RoleNil(t *testing.T) {
	var tok *FirebaseToken
	if tok.Role() != "" {
		t.Error("nil token has no role")
	}
	tok = &FirebaseToken{Claims: map[string]interface{}{"role": 42}}
	if tok.Role() != "" {
		t.Error("non-string role claim should be ignored")
	}
}

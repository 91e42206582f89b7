// README: End-to-end tests for the relay routes with in-memory stores.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	httptransport "secureher/internal/http"
	"secureher/internal/infra"
	"secureher/internal/modules/alert"
	"secureher/internal/modules/location"
	"secureher/internal/types"
)

type memAlerts struct {
	mu     sync.Mutex
	alerts map[types.ID]alert.Alert
}

func (m *memAlerts) Create(_ context.Context, a *alert.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = *a
	return nil
}

func (m *memAlerts) Get(_ context.Context, id types.ID) (*alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, alert.ErrNotFound
	}
	return &a, nil
}

func (m *memAlerts) UpdateStatus(_ context.Context, id types.ID, from, to alert.Status, version int, responderID *types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.alerts[id]
	if a.Status != from || a.StatusVersion != version {
		return false, nil
	}
	a.Status = to
	a.StatusVersion++
	if responderID != nil {
		a.ResponderID = responderID
	}
	m.alerts[id] = a
	return true, nil
}

func (m *memAlerts) AppendEvent(context.Context, *alert.Event) error { return nil }

func (m *memAlerts) HasOpenByUser(_ context.Context, userID types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.UserID == userID && a.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAlerts) ListOpen(_ context.Context, _ int) ([]alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []alert.Alert
	for _, a := range m.alerts {
		if a.Status == alert.StatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

type memLocations struct {
	mu     sync.Mutex
	latest map[types.ID]location.Latest
}

func (m *memLocations) SetLatest(_ context.Context, l location.Latest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[l.UserID] = l
	return nil
}

func (m *memLocations) GetLatest(_ context.Context, id types.ID) (*location.Latest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.latest[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memLocations) Nearby(_ context.Context, _ types.Point, _ float64, _ int) ([]location.Nearby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []location.Nearby
	for _, l := range m.latest {
		out = append(out, location.Nearby{UserID: l.UserID, Position: l.Position})
	}
	return out, nil
}

func (m *memLocations) AppendSnapshot(context.Context, location.Snapshot) error { return nil }

func (m *memLocations) History(context.Context, types.ID, int) ([]location.Snapshot, error) {
	return nil, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return httptransport.NewRouter(httptransport.RouterDeps{
		Alerts:   alert.NewService(&memAlerts{alerts: map[types.ID]alert.Alert{}}),
		Location: location.NewService(&memLocations{latest: map[types.ID]location.Latest{}}),
		Verifier: infra.DevVerifier{},
	})
}

// do sends a request as token (DevVerifier format "uid" or "uid:role").
func do(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type participantLocation struct {
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	LastUpdate *string  `json:"lastUpdate"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(), http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", w.Code, w.Body.String())
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	r := newTestRouter()
	for _, path := range []string{"/api/alert", "/api/alert/a1/participant-location"} {
		if w := do(r, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestLocationUpdate_Validation(t *testing.T) {
	r := newTestRouter()
	cases := []struct {
		name string
		body any
		want int
	}{
		{"ok", map[string]float64{"latitude": 23.8, "longitude": 90.4}, http.StatusOK},
		{"missing longitude", map[string]float64{"latitude": 23.8}, http.StatusBadRequest},
		{"out of range", map[string]float64{"latitude": 123, "longitude": 90.4}, http.StatusBadRequest},
		{"zero is a valid coordinate", map[string]float64{"latitude": 0, "longitude": 0}, http.StatusOK},
	}
	for _, tc := range cases {
		if w := do(r, http.MethodPut, "/api/location", "u1", tc.body); w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d (%s)", tc.name, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestAlertLifecycleAndParticipantLocation(t *testing.T) {
	r := newTestRouter()

	w := do(r, http.MethodPost, "/api/alert", "u1", map[string]any{"latitude": 23.81, "longitude": 90.41, "message": "help"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	created := decode[struct {
		AlertID string `json:"alertId"`
		Status  string `json:"status"`
	}](t, w)
	if created.AlertID == "" || created.Status != "active" {
		t.Fatalf("unexpected create response %+v", created)
	}
	base := "/api/alert/" + created.AlertID

	// No responder yet: nulls, not an error.
	w = do(r, http.MethodGet, base+"/participant-location", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("participant-location: expected 200, got %d", w.Code)
	}
	if loc := decode[participantLocation](t, w); loc.Latitude != nil || loc.Longitude != nil || loc.LastUpdate != nil {
		t.Errorf("expected nulls, got %+v", loc)
	}

	if w := do(r, http.MethodPost, base+"/accept", "u2", nil); w.Code != http.StatusForbidden {
		t.Errorf("accept without responder role: expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/alert", "r1:responder", nil); w.Code != http.StatusOK {
		t.Errorf("list open: expected 200, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, base+"/accept", "r1:responder", nil); w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, base+"/accept", "r2:responder", nil); w.Code != http.StatusConflict {
		t.Errorf("second accept: expected 409, got %d", w.Code)
	}

	// Responder accepted but has not shared a location yet.
	w = do(r, http.MethodGet, base+"/participant-location", "u1", nil)
	if loc := decode[participantLocation](t, w); loc.Latitude != nil {
		t.Errorf("expected nulls before responder shares, got %+v", loc)
	}

	do(r, http.MethodPut, "/api/location", "r1:responder", map[string]float64{"latitude": 23.805, "longitude": 90.405})
	do(r, http.MethodPut, "/api/location", "u1", map[string]float64{"latitude": 23.80, "longitude": 90.40})

	w = do(r, http.MethodGet, base+"/participant-location", "u1", nil)
	loc := decode[participantLocation](t, w)
	if loc.Latitude == nil || *loc.Latitude != 23.805 || loc.LastUpdate == nil {
		t.Errorf("owner should see the responder, got %+v", loc)
	}
	w = do(r, http.MethodGet, base+"/participant-location", "r1:responder", nil)
	loc = decode[participantLocation](t, w)
	if loc.Latitude == nil || *loc.Latitude != 23.80 {
		t.Errorf("responder should see the owner, got %+v", loc)
	}

	if w := do(r, http.MethodGet, base+"/participant-location", "stranger", nil); w.Code != http.StatusForbidden {
		t.Errorf("stranger: expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, base+"/cancel", "r1:responder", nil); w.Code != http.StatusForbidden {
		t.Errorf("responder cancel: expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, base+"/resolve", "u1", nil); w.Code != http.StatusOK {
		t.Errorf("resolve: expected 200, got %d", w.Code)
	}
	w = do(r, http.MethodGet, base, "r1:responder", nil)
	if got := decode[struct {
		Status string `json:"status"`
	}](t, w); got.Status != "resolved" {
		t.Errorf("expected resolved, got %s", got.Status)
	}
}

func TestAlert_BadRequests(t *testing.T) {
	r := newTestRouter()
	if w := do(r, http.MethodPost, "/api/alert", "u1", map[string]any{"message": "no coords"}); w.Code != http.StatusBadRequest {
		t.Errorf("create without coords: expected 400, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/alert/bad$id", "u1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/alert/unknown", "u1", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown alert: expected 404, got %d", w.Code)
	}
	do(r, http.MethodPost, "/api/alert", "u1", map[string]any{"latitude": 1, "longitude": 1})
	if w := do(r, http.MethodPost, "/api/alert", "u1", map[string]any{"latitude": 1, "longitude": 1}); w.Code != http.StatusConflict {
		t.Errorf("second open alert: expected 409, got %d", w.Code)
	}
}

func TestNearby_ResponderOnly(t *testing.T) {
	r := newTestRouter()
	do(r, http.MethodPut, "/api/location", "u1", map[string]float64{"latitude": 23.8, "longitude": 90.4})

	if w := do(r, http.MethodGet, "/api/location/nearby?lat=23.8&lng=90.4", "u2", nil); w.Code != http.StatusForbidden {
		t.Errorf("non-responder: expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/location/nearby?lat=x&lng=90.4", "r1:responder", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad lat: expected 400, got %d", w.Code)
	}
	w := do(r, http.MethodGet, "/api/location/nearby?lat=23.8&lng=90.4&radiusKm=2", "r1:responder", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("nearby: expected 200, got %d", w.Code)
	}
	found := decode[[]struct {
		UserID string `json:"userId"`
	}](t, w)
	if len(found) != 1 || found[0].UserID != "u1" {
		t.Errorf("unexpected nearby result %+v", found)
	}
}

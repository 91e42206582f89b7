// README: Alert handlers: SOS lifecycle and the participant-location poll.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"secureher/internal/modules/alert"
	"secureher/internal/modules/location"
	"secureher/internal/types"
)

type AlertHandler struct {
	alerts   *alert.Service
	location *location.Service
}

func NewAlertHandler(alerts *alert.Service, loc *location.Service) *AlertHandler {
	return &AlertHandler{alerts: alerts, location: loc}
}

type createAlertRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Message   string   `json:"message"`
}

type alertResponse struct {
	AlertID     string     `json:"alertId"`
	Status      string     `json:"status"`
	UserID      string     `json:"userId"`
	ResponderID *string    `json:"responderId"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Message     string     `json:"message,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

// participantLocationResponse keeps latitude/longitude as explicit nulls until
// the counterpart shares a position.
type participantLocationResponse struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	LastUpdate *time.Time `json:"lastUpdate"`
}

func toAlertResponse(a *alert.Alert) alertResponse {
	out := alertResponse{
		AlertID:     string(a.ID),
		Status:      string(a.Status),
		UserID:      string(a.UserID),
		Latitude:    a.Origin.Lat,
		Longitude:   a.Origin.Lng,
		Message:     a.Message,
		CreatedAt:   a.CreatedAt,
		AcceptedAt:  a.AcceptedAt,
		ResolvedAt:  a.ResolvedAt,
		CancelledAt: a.CancelledAt,
	}
	if a.ResponderID != nil {
		r := string(*a.ResponderID)
		out.ResponderID = &r
	}
	return out
}

func alertID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid alert id")
		return "", false
	}
	return types.ID(id), true
}

func (h *AlertHandler) Create(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	a, err := h.alerts.Create(c.Request.Context(), alert.CreateCommand{
		UserID:  callerID(c),
		Origin:  types.Point{Lat: *req.Latitude, Lng: *req.Longitude},
		Message: req.Message,
	})
	if err != nil {
		writeAlertError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toAlertResponse(a))
}

func (h *AlertHandler) Get(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	a, err := h.alerts.Get(c.Request.Context(), id, callerID(c))
	if err != nil {
		writeAlertError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toAlertResponse(a))
}

// ListOpen shows responders the alerts still waiting for help.
func (h *AlertHandler) ListOpen(c *gin.Context) {
	if !isResponder(c) {
		writeError(c, http.StatusForbidden, "forbidden: responder role required")
		return
	}
	open, err := h.alerts.ListOpen(c.Request.Context())
	if err != nil {
		writeAlertError(c, err)
		return
	}
	out := make([]alertResponse, 0, len(open))
	for i := range open {
		out = append(out, toAlertResponse(&open[i]))
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *AlertHandler) Accept(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if !isResponder(c) {
		writeError(c, http.StatusForbidden, "forbidden: responder role required")
		return
	}
	a, err := h.alerts.Accept(c.Request.Context(), alert.AcceptCommand{AlertID: id, ResponderID: callerID(c)})
	if err != nil {
		writeAlertError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toAlertResponse(a))
}

func (h *AlertHandler) Resolve(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	a, err := h.alerts.Resolve(c.Request.Context(), id, callerID(c))
	if err != nil {
		writeAlertError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toAlertResponse(a))
}

func (h *AlertHandler) Cancel(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	a, err := h.alerts.Cancel(c.Request.Context(), id, callerID(c))
	if err != nil {
		writeAlertError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toAlertResponse(a))
}

// ParticipantLocation returns the counterpart's latest position. It answers
// with nulls while there is no counterpart or it has not shared yet.
func (h *AlertHandler) ParticipantLocation(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	peer, err := h.alerts.Counterpart(c.Request.Context(), id, callerID(c))
	if err != nil {
		writeAlertError(c, err)
		return
	}
	var out participantLocationResponse
	if peer == "" {
		writeJSON(c, http.StatusOK, out)
		return
	}
	l, err := h.location.Latest(c.Request.Context(), peer)
	if err != nil {
		writeLocationError(c, err)
		return
	}
	if l != nil {
		lat, lng, at := l.Position.Lat, l.Position.Lng, l.UpdatedAt
		out = participantLocationResponse{Latitude: &lat, Longitude: &lng, LastUpdate: &at}
	}
	writeJSON(c, http.StatusOK, out)
}

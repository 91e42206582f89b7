// README: Location handlers: push own position, nearby search, own history.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"secureher/internal/modules/location"
	"secureher/internal/types"
)

type LocationHandler struct {
	location *location.Service
}

func NewLocationHandler(svc *location.Service) *LocationHandler {
	return &LocationHandler{location: svc}
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

type locationResponse struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type nearbyResponse struct {
	UserID     string  `json:"userId"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distanceKm"`
}

type snapshotResponse struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Update stores the caller's position; the user id always comes from the token.
func (h *LocationHandler) Update(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	l, err := h.location.Update(c.Request.Context(), location.Update{
		UserID:   callerID(c),
		Position: types.Point{Lat: *req.Latitude, Lng: *req.Longitude},
	})
	if err != nil {
		writeLocationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, locationResponse{
		Latitude:  l.Position.Lat,
		Longitude: l.Position.Lng,
		UpdatedAt: l.UpdatedAt,
	})
}

// Nearby lists sharing users around a point. Responders only.
func (h *LocationHandler) Nearby(c *gin.Context) {
	if !isResponder(c) {
		writeError(c, http.StatusForbidden, "forbidden: responder role required")
		return
	}
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng query parameters are required")
		return
	}
	radius := location.DefaultNearbyRadiusKm
	if v := c.Query("radiusKm"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			writeError(c, http.StatusBadRequest, "invalid radiusKm")
			return
		}
		radius = r
	}

	found, err := h.location.Nearby(c.Request.Context(), callerID(c), types.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writeLocationError(c, err)
		return
	}
	out := make([]nearbyResponse, 0, len(found))
	for _, n := range found {
		out = append(out, nearbyResponse{
			UserID:     string(n.UserID),
			Latitude:   n.Position.Lat,
			Longitude:  n.Position.Lng,
			DistanceKm: n.DistanceKm,
		})
	}
	writeJSON(c, http.StatusOK, out)
}

// History returns the caller's own recent snapshots.
func (h *LocationHandler) History(c *gin.Context) {
	snaps, err := h.location.History(c.Request.Context(), callerID(c))
	if err != nil {
		writeLocationError(c, err)
		return
	}
	out := make([]snapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, snapshotResponse{Latitude: s.Position.Lat, Longitude: s.Position.Lng, RecordedAt: s.RecordedAt})
	}
	writeJSON(c, http.StatusOK, out)
}

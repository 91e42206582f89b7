// Package apiclient wraps the SecureHer REST API calls the agent consumes.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"secureher/internal/types"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// TokenSource supplies the bearer token for the current session. An empty
// token sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

// ParticipantLocation is the other side's last shared position. Latitude and
// Longitude are nil until the participant shares a location.
type ParticipantLocation struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	LastUpdate *time.Time `json:"lastUpdate"`
}

// Shared reports whether both coordinates are present.
func (p *ParticipantLocation) Shared() bool {
	return p != nil && p.Latitude != nil && p.Longitude != nil
}

// Point returns the shared coordinates; ok is false when not yet shared.
func (p *ParticipantLocation) Point() (types.Point, bool) {
	if !p.Shared() {
		return types.Point{}, false
	}
	return types.Point{Lat: *p.Latitude, Lng: *p.Longitude}, true
}

type Alert struct {
	AlertID string `json:"alertId"`
	Status  string `json:"status"`
}

type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	deviceID string
}

// New returns a client rooted at baseURL, e.g. "https://api.example.com/api".
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// WithDeviceID tags every request with X-Device-ID.
func (c *Client) WithDeviceID(id string) *Client {
	c.deviceID = id
	return c
}

type locationReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpdateLocation pushes the device position.
func (c *Client) UpdateLocation(ctx context.Context, lat, lng float64) error {
	return c.do(ctx, http.MethodPut, "/location", locationReq{Latitude: lat, Longitude: lng}, nil)
}

// GetAlertParticipantLocation fetches the counterpart's last shared position
// for an alert.
func (c *Client) GetAlertParticipantLocation(ctx context.Context, alertID string) (*ParticipantLocation, error) {
	if alertID == "" {
		return nil, fmt.Errorf("missing alert id")
	}
	var out ParticipantLocation
	path := "/alert/" + url.PathEscape(alertID) + "/participant-location"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type createAlertReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Message   string  `json:"message,omitempty"`
}

// CreateAlert raises an SOS alert at the given position.
func (c *Client) CreateAlert(ctx context.Context, lat, lng float64, message string) (*Alert, error) {
	var out Alert
	err := c.do(ctx, http.MethodPost, "/alert", createAlertReq{Latitude: lat, Longitude: lng, Message: message}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[API] %s %s failed: %v", method, path, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(b))
}

package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"SECUREHER_API_BASE_URL", "EXPO_PUBLIC_API_BASE_URL", "SECUREHER_GOOGLE_MAPS_API_KEY",
		"EXPO_PUBLIC_GOOGLE_MAPS_API_KEY", "EXPO_PUBLIC_GOOGLE_MAPS_WEB_API_KEY", "SECUREHER_POLL_INTERVAL",
		"SECUREHER_PUSH_INTERVAL", "SECUREHER_HTTP_TIMEOUT", "SECUREHER_LOCATION_TTL", "SECUREHER_DEV_AUTH",
	} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Agent.PushInterval != 30*time.Second || cfg.Agent.PollInterval != 0 || cfg.Agent.HTTPTimeout != 15*time.Second {
		t.Errorf("unexpected agent defaults: %+v", cfg.Agent)
	}
	if cfg.Agent.GoogleMapsAPIKey != "" {
		t.Errorf("expected no maps key, got %q", cfg.Agent.GoogleMapsAPIKey)
	}
	if cfg.Relay.LocationTTL != 10*time.Minute || cfg.Relay.DevAuth {
		t.Errorf("unexpected relay defaults: %+v", cfg.Relay)
	}
}

func TestLoad_LegacyFallbacks(t *testing.T) {
	t.Setenv("SECUREHER_API_BASE_URL", "")
	t.Setenv("EXPO_PUBLIC_API_BASE_URL", "https://legacy.example.com/api")
	t.Setenv("SECUREHER_GOOGLE_MAPS_API_KEY", "")
	t.Setenv("EXPO_PUBLIC_GOOGLE_MAPS_API_KEY", "")
	t.Setenv("EXPO_PUBLIC_GOOGLE_MAPS_WEB_API_KEY", "web-key")

	cfg, _ := Load()
	if cfg.Agent.APIBaseURL != "https://legacy.example.com/api" {
		t.Errorf("base url = %q", cfg.Agent.APIBaseURL)
	}
	if cfg.Agent.GoogleMapsAPIKey != "web-key" {
		t.Errorf("maps key = %q", cfg.Agent.GoogleMapsAPIKey)
	}

	t.Setenv("SECUREHER_GOOGLE_MAPS_API_KEY", "primary")
	cfg, _ = Load()
	if cfg.Agent.GoogleMapsAPIKey != "primary" {
		t.Errorf("primary key should win, got %q", cfg.Agent.GoogleMapsAPIKey)
	}
}

func TestEnvOrDefaultDuration(t *testing.T) {
	cases := []struct {
		val  string
		want time.Duration
	}{
		{"", time.Minute},
		{"45s", 45 * time.Second},
		{"20", 20 * time.Second},
		{"0", 0},
		{"-5s", time.Minute},
		{"soon", time.Minute},
	}
	for _, tc := range cases {
		t.Setenv("SECUREHER_TEST_DURATION", tc.val)
		if got := envOrDefaultDuration("SECUREHER_TEST_DURATION", time.Minute); got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.val, got, tc.want)
		}
	}
}

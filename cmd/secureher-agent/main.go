// README: Agent entry point; runs background tracking, a navigation session, or raises an SOS alert.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"secureher/internal/apiclient"
	"secureher/internal/config"
	"secureher/internal/device"
	"secureher/internal/geo"
	"secureher/internal/localstore"
	"secureher/internal/maps"
	"secureher/internal/modules/navigation"
	"secureher/internal/modules/session"
	"secureher/internal/modules/tracking"
)

const usage = `usage: secureher-agent <track|navigate|sos> [flags]

  track     push the device location in the background while signed in
  navigate  follow an alert participant (-alert, -role, -target required)
  sos       raise an alert at the current location

Send SIGHUP to force a location reload (track) or a session reload (navigate).`

type flags struct {
	alertID   string
	role      string
	target    string
	fixesFile string
	fix       string
	deny      bool
	message   string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	var f flags
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.StringVar(&f.alertID, "alert", "", "alert id (navigate)")
	fs.StringVar(&f.role, "role", "USER", "USER or RESPONDER (navigate)")
	fs.StringVar(&f.target, "target", "", `target location JSON, e.g. {"latitude":23.81,"longitude":90.41} (navigate)`)
	fs.StringVar(&f.fixesFile, "fixes", "", "JSON file of fixes to replay as the device position")
	fs.StringVar(&f.fix, "fix", "", "fixed device position as lat,lng")
	fs.BoolVar(&f.deny, "deny-permission", false, "simulate a denied location permission")
	fs.StringVar(&f.message, "message", "", "alert message (sos)")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAgent(ctx, cfg.Agent, f)
	if err != nil {
		log.Fatal(err)
	}
	defer a.store.Close()

	switch cmd {
	case "track":
		err = a.track(ctx)
	case "navigate":
		err = a.navigate(ctx, f)
	case "sos":
		err = a.sos(ctx, f.message)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

type agent struct {
	cfg      config.AgentConfig
	store    *localstore.Store
	auth     *session.Auth
	client   *apiclient.Client
	geocoder maps.Geocoder
	tracker  *tracking.Service
}

func newAgent(ctx context.Context, cfg config.AgentConfig, f flags) (*agent, error) {
	locator, err := newLocator(f)
	if err != nil {
		return nil, err
	}

	store, err := localstore.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	installID, err := store.InstallID(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}

	auth := session.NewAuth()
	if cfg.UserID != "" && cfg.Token != "" {
		auth.Set(session.AuthState{UserID: cfg.UserID, Token: cfg.Token})
	}
	client := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout, auth).WithDeviceID(installID)

	var geocoder maps.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		g, err := maps.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
		if err != nil {
			store.Close()
			return nil, err
		}
		geocoder = g
	}

	tcfg := tracking.DefaultConfig()
	if cfg.PushInterval > 0 {
		tcfg.PushInterval = cfg.PushInterval
	}

	tracker := tracking.NewService(locator, geocoder, client, store, tcfg)
	// The watch replays the same track on its own cursor.
	tracker.SetWatchLocator(locator.Fork())

	return &agent{
		cfg:      cfg,
		store:    store,
		auth:     auth,
		client:   client,
		geocoder: geocoder,
		tracker:  tracker,
	}, nil
}

func newLocator(f flags) (*device.ReplayLocator, error) {
	granted := !f.deny
	switch {
	case f.fixesFile != "":
		return device.LoadReplayFile(f.fixesFile, granted)
	case f.fix != "":
		p, err := parseFix(f.fix)
		if err != nil {
			return nil, err
		}
		return device.NewStaticLocator(p, granted), nil
	default:
		return nil, errors.New("no location source: pass -fixes or -fix")
	}
}

// parseFix reads "lat,lng".
func parseFix(s string) (geo.MapLocation, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return geo.MapLocation{}, fmt.Errorf("invalid -fix %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return geo.MapLocation{}, fmt.Errorf("invalid -fix latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return geo.MapLocation{}, fmt.Errorf("invalid -fix longitude: %w", err)
	}
	p := geo.MapLocation{Latitude: lat, Longitude: lng}
	if !p.Point().Valid() {
		return geo.MapLocation{}, fmt.Errorf("invalid -fix %q: out of range", s)
	}
	return p, nil
}

func (a *agent) track(ctx context.Context) error {
	if !a.auth.Current().Authenticated() {
		return errors.New("SECUREHER_USER_ID and SECUREHER_TOKEN are required to track")
	}
	sub, err := a.tracker.WatchLocation(ctx, func(fix geo.LocationData) {
		log.Printf("[TRACKING] moved to %.6f,%.6f", fix.Coords.Latitude, fix.Coords.Longitude)
	}, func(err error) {
		log.Printf("[TRACKING] watch: %v", err)
	})
	if err != nil {
		return err
	}
	defer sub.Cancel()

	locCtx := session.NewLocationContext(a.tracker, a.auth)
	go a.onReloadSignal(ctx, func() {
		res, err := locCtx.ManualLocationReload(ctx)
		if err != nil {
			log.Printf("[TRACKING] manual reload: %v", err)
			return
		}
		log.Printf("[TRACKING] manual reload: %s", res.Message)
	})
	locCtx.Run(ctx)
	return nil
}

func (a *agent) navigate(ctx context.Context, f flags) error {
	params, err := navigation.ParseParams(f.alertID, f.role, f.target)
	if err != nil {
		return err
	}
	directions, err := maps.NewDirectionsProvider(a.cfg.GoogleMapsAPIKey)
	if err != nil {
		return err
	}

	sess := navigation.NewSession(params, navigation.Deps{
		Self:         a.tracker,
		API:          a.client,
		Participants: a.client,
		Directions:   directions,
	}, navigation.Options{
		PollInterval: a.cfg.PollInterval,
		OnChange:     printView,
	})

	// Background tracking runs alongside the session, as it does app-wide.
	go session.NewLocationContext(a.tracker, a.auth).Run(ctx)
	go a.onReloadSignal(ctx, func() { sess.Reload(ctx) })

	// The text renderer is ready immediately.
	sess.SetMapLoaded(ctx)
	return sess.Run(ctx)
}

func (a *agent) sos(ctx context.Context, message string) error {
	fix, err := a.tracker.GetCurrentLocation(ctx)
	if err != nil {
		return err
	}
	if fix == nil {
		return errors.New("could not get the current location")
	}
	lat, lng := fix.Coords.Latitude, fix.Coords.Longitude
	if message == "" {
		message = "SOS"
		if addr, ok := a.tracker.AddressFromCoordinates(ctx, lat, lng); ok {
			message = "SOS near " + addr.FormattedAddress
		}
	}
	alert, err := a.client.CreateAlert(ctx, lat, lng, message)
	if err != nil {
		return err
	}
	fmt.Printf("alert %s %s at %.6f,%.6f\n", alert.AlertID, alert.Status, lat, lng)
	return nil
}

func (a *agent) onReloadSignal(ctx context.Context, reload func()) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			reload()
		}
	}
}

func printView(v navigation.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "[NAV] %s status=%s", v.Phase, v.Status)
	for _, m := range v.Markers {
		fmt.Fprintf(&b, " %s=%.5f,%.5f", m.Kind, m.Coords.Latitude, m.Coords.Longitude)
	}
	if v.Route != nil {
		fmt.Fprintf(&b, " route=%s/%dpts/%dm", v.Route.Provider, len(v.Route.Points), v.Route.DistanceMeters)
	}
	fmt.Fprintf(&b, " region=%.4f,%.4f±%.4f", v.Region.Latitude, v.Region.Longitude, v.Region.LatitudeDelta)
	log.Print(b.String())
}

// README: Relay entry point; loads config, wires stores and services, serves the location/alert API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"secureher/internal/config"
	httptransport "secureher/internal/http"
	"secureher/internal/infra"
	"secureher/internal/modules/alert"
	"secureher/internal/modules/location"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	relay := cfg.Relay

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verifier infra.TokenVerifier
	switch {
	case relay.DevAuth:
		log.Printf("[RELAY] SECUREHER_DEV_AUTH is on; bearer tokens are trusted as uid[:role]")
		verifier = infra.DevVerifier{}
	case relay.Firebase.ProjectID == "":
		log.Fatal("SECUREHER_FIREBASE_PROJECT_ID is required")
	default:
		verifier, err = infra.NewFirebaseVerifier(ctx, relay.Firebase.ProjectID, relay.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
	}

	dbPool, err := infra.NewDB(ctx, relay.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()
	if err := infra.Migrate(ctx, dbPool); err != nil {
		log.Fatal(err)
	}

	redisClient, err := infra.NewRedis(ctx, relay.Redis.Addr)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()

	alertSvc := alert.NewService(alert.NewStore(dbPool))
	locationSvc := location.NewService(location.NewStore(dbPool, redisClient, relay.LocationTTL))

	gin.SetMode(gin.ReleaseMode)
	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Alerts:   alertSvc,
		Location: locationSvc,
		Verifier: verifier,
	})

	server := &http.Server{Addr: relay.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("[RELAY] listening on %s", relay.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

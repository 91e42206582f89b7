// README: HTTP router registration for the location relay.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secureher/internal/http/handlers"
	"secureher/internal/http/middleware"
	"secureher/internal/infra"
	"secureher/internal/modules/alert"
	"secureher/internal/modules/location"
)

type RouterDeps struct {
	Alerts   *alert.Service
	Location *location.Service
	Verifier infra.TokenVerifier
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	locationHandler := handlers.NewLocationHandler(deps.Location)
	api.PUT("/location", locationHandler.Update)
	api.POST("/location", locationHandler.Update)
	api.GET("/location/nearby", locationHandler.Nearby)
	api.GET("/location/history", locationHandler.History)

	alertHandler := handlers.NewAlertHandler(deps.Alerts, deps.Location)
	api.POST("/alert", alertHandler.Create)
	api.GET("/alert", alertHandler.ListOpen)
	api.GET("/alert/:id", alertHandler.Get)
	api.GET("/alert/:id/participant-location", alertHandler.ParticipantLocation)
	api.POST("/alert/:id/accept", alertHandler.Accept)
	api.POST("/alert/:id/resolve", alertHandler.Resolve)
	api.POST("/alert/:id/cancel", alertHandler.Cancel)

	return r
}

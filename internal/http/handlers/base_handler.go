// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"secureher/internal/http/middleware"
	"secureher/internal/modules/alert"
	"secureher/internal/modules/location"
	"secureher/internal/types"
)

const roleResponder = "responder"

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts the relay's uuid alert ids and Firebase uids.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func callerID(c *gin.Context) types.ID {
	return types.ID(middleware.CallerUID(c))
}

func isResponder(c *gin.Context) bool {
	return strings.EqualFold(middleware.CallerRole(c), roleResponder)
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeAlertError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, alert.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, alert.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, alert.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, alert.ErrInvalidState), errors.Is(err, alert.ErrActiveAlert), errors.Is(err, alert.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("[RELAY] %s %s: %v", c.Request.Method, c.FullPath(), err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeLocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, location.ErrBadRequest), errors.Is(err, location.ErrInvalidPosition):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[RELAY] %s %s: %v", c.Request.Method, c.FullPath(), err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

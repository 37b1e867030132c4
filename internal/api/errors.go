package api

import (
	"net/http"

	"example.com/backstage/services/laundry/internal/repositories"
	"example.com/backstage/services/laundry/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	errUnauthorized = errors.New("authentication required")
	errForbidden    = errors.New("insufficient role")
)

// statusFor maps a service error onto an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden), errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSlotFull),
		errors.Is(err, services.ErrRequestNotPending),
		errors.Is(err, services.ErrRouteStarted),
		errors.Is(err, services.ErrOrderOnRoute),
		errors.Is(err, repositories.ErrDuplicateKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the status matching err. Server errors are logged and
// their details withheld.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		requestID, _ := c.Get(requestIDKey)
		log.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Interface("request_id", requestID).
			Msg("Request failed")
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

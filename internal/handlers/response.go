package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"launcherstats/internal/telemetry"
)

const internalErrorMessage = "internal server error"

// bindJSON decodes the request body into dst and answers the request itself
// when that fails.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// failWith maps a service error to a response. Storage failures were
// already logged by the service and only surface as a generic error.
func failWith(c *gin.Context, err error) {
	var verr *telemetry.ValidationError
	if errors.As(err, &verr) {
		fail(c, http.StatusBadRequest, verr.Error())
		return
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, internalErrorMessage)
}

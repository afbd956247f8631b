package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launcherstats/internal/telemetry"
)

// HeartbeatRequest is the payload of POST /heartbeat.
type HeartbeatRequest struct {
	UserID     string `json:"userId"`
	SessionID  string `json:"sessionId"`
	AppVersion string `json:"appVersion"`
}

// HeartbeatHandler records a liveness report and answers with the session id
// the client should send next time.
func HeartbeatHandler(svc *telemetry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req HeartbeatRequest
		if !bindJSON(c, &req) {
			return
		}

		sessionID, err := svc.ReportHeartbeat(c.Request.Context(), telemetry.HeartbeatInput{
			UserID:     req.UserID,
			SessionID:  req.SessionID,
			AppVersion: req.AppVersion,
			SourceIP:   c.ClientIP(),
		})
		if err != nil {
			failWith(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": sessionID})
	}
}

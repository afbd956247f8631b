package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"launcherstats/internal/telemetry"
)

// FlexString accepts a JSON string or number. Launchers report RAM either
// way.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// HardwareRequest is the payload of POST /hardware.
type HardwareRequest struct {
	UserID    string     `json:"userId"`
	OS        string     `json:"os"`
	OSVersion string     `json:"osVersion"`
	RAM       FlexString `json:"ram"`
	GPU       string     `json:"gpu"`
	CPU       string     `json:"cpu"`
}

// HardwareHandler stores the reporting machine's hardware profile.
func HardwareHandler(svc *telemetry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req HardwareRequest
		if !bindJSON(c, &req) {
			return
		}

		err := svc.ReportHardware(c.Request.Context(), telemetry.HardwareInput{
			UserID:    req.UserID,
			OS:        req.OS,
			OSVersion: req.OSVersion,
			RAM:       string(req.RAM),
			GPU:       req.GPU,
			CPU:       req.CPU,
		})
		if err != nil {
			failWith(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

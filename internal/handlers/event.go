package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/xerrors"

	"launcherstats/internal/telemetry"
)

// FlexTime accepts an RFC 3339 string or a number of milliseconds since the
// Unix epoch, which is what Date.now() produces.
type FlexTime time.Time

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var t time.Time
		if err := json.Unmarshal(b, &t); err != nil {
			return err
		}
		*f = FlexTime(t)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if ms, err := n.Int64(); err == nil {
		*f = FlexTime(time.UnixMilli(ms))
		return nil
	}
	ms, err := n.Float64()
	if err != nil || math.IsInf(ms, 0) || math.Abs(ms) > math.MaxInt64/1000 {
		return xerrors.Errorf("timestamp %s out of range", n)
	}
	*f = FlexTime(time.UnixMicro(int64(math.Round(ms * 1000))))
	return nil
}

// EventRequest is one element of TelemetryRequest.Events.
type EventRequest struct {
	Type      string          `json:"type"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp *FlexTime       `json:"timestamp,omitempty"`
}

// TelemetryRequest is the payload of POST /telemetry. Events stays nil when
// the field is missing or null, which the service rejects.
type TelemetryRequest struct {
	UserID string         `json:"userId"`
	Events []EventRequest `json:"events"`
}

func (r TelemetryRequest) inputs() []telemetry.EventInput {
	if r.Events == nil {
		return nil
	}
	out := make([]telemetry.EventInput, 0, len(r.Events))
	for _, e := range r.Events {
		in := telemetry.EventInput{Type: e.Type, Metadata: e.Metadata}
		if e.Timestamp != nil {
			t := time.Time(*e.Timestamp)
			in.Timestamp = &t
		}
		out = append(out, in)
	}
	return out
}

// TelemetryHandler appends a batch of events to the event log.
func TelemetryHandler(svc *telemetry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TelemetryRequest
		if !bindJSON(c, &req) {
			return
		}

		n, err := svc.IngestEvents(c.Request.Context(), req.UserID, req.inputs())
		if err != nil {
			failWith(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "count": n})
	}
}

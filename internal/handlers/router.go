package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"launcherstats/internal/metrics"
	"launcherstats/internal/telemetry"
)

// DefaultMaxBodyBytes caps request bodies when Deps leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// Deps are the collaborators of the router.
type Deps struct {
	Ingest      *telemetry.Service
	Stats       StatsComputer
	Health      Pinger
	StatsSecret string

	MaxBodyBytes   int64
	TrustedProxies []string

	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter wires every route.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNop()
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = DefaultMaxBodyBytes
	}

	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, xerrors.Errorf("set trusted proxies: %w", err)
	}
	r.Use(Recovery(d.Logger), RequestLogger(d.Logger), RequestMetrics(d.Metrics), LimitBody(d.MaxBodyBytes))

	// Ingestion API, called by launchers.
	r.POST("/heartbeat", HeartbeatHandler(d.Ingest))
	r.POST("/hardware", HardwareHandler(d.Ingest))
	r.POST("/telemetry", TelemetryHandler(d.Ingest))

	r.GET("/stats", RequireBearer(d.StatsSecret), StatsHandler(d.Stats, d.Logger))
	r.GET("/admin", AdminPageHandler())

	if d.Health != nil {
		r.GET("/healthz", HealthHandler(d.Health))
	}
	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}
	return r, nil
}

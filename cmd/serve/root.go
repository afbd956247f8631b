package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	cmdUtil "launcherstats/cmd/util"
	"launcherstats/internal/config"
	"launcherstats/internal/geo"
	"launcherstats/internal/handlers"
	"launcherstats/internal/log"
	"launcherstats/internal/metrics"
	"launcherstats/internal/stats"
	"launcherstats/internal/store"
	"launcherstats/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg      *config.Config
	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the telemetry HTTP server",
		Long: `Start the telemetry HTTP server. Every flag can also be set through an
environment variable named LAUNCHERSTATS_<FLAG>, e.g. LAUNCHERSTATS_STATS_SECRET.`,
		PreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err = cmdUtil.LoadConfig(cmd)
			return err
		},
		RunE: run,
	}
)

func init() {
	config.ServeFlags(ServeCmd.Flags())
}

func run(cmd *cobra.Command, _ []string) error {
	logger := log.Default
	defer func() { _ = logger.Sync() }()

	st, err := cmdUtil.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer cmdUtil.CloseStore(st)

	if cfg.AutoMigrate {
		if err := store.Migrate(st.DB()); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var lookup geo.Lookup
	if cfg.GeoIPDB != "" {
		mm, err := geo.OpenMaxMind(cfg.GeoIPDB)
		if err != nil {
			return err
		}
		defer mm.Close()
		lookup = mm
	} else {
		logger.Warn("no geoip database configured, every country resolves to unknown")
	}
	if cfg.StatsSecret == "" {
		logger.Warn("no stats secret configured, GET /stats rejects every request")
	}

	ingest := telemetry.New(telemetry.Options{
		Store:          st,
		Resolver:       geo.NewResolver(lookup, cfg.GeoTimeout, logger, m),
		Logger:         logger,
		Metrics:        m,
		MaxBatchEvents: cfg.MaxBatchEvents,
	})
	engine := stats.NewEngine(stats.Options{
		Source:              st,
		Logger:              logger,
		Metrics:             m,
		MaxActiveIdentities: cfg.MaxActiveIdentities,
		Timeout:             cfg.StatsTimeout,
	})

	var metricsHandler http.Handler
	if cfg.Metrics {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := handlers.NewRouter(handlers.Deps{
		Ingest:         ingest,
		Stats:          engine,
		Health:         st,
		StatsSecret:    cfg.StatsSecret,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
		Metrics:        m,
		MetricsHandler: metricsHandler,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30*time.Second + cfg.StatsTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("server listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

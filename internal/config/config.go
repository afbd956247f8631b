package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// EnvPrefix prefixes every environment variable, e.g. LAUNCHERSTATS_DSN.
const EnvPrefix = "launcherstats"

// Configuration keys. Each is a flag name and, upper-cased with "-"
// replaced by "_", an environment variable.
const (
	KeyListen              = "listen"
	KeyDSN                 = "dsn"
	KeyStatsSecret         = "stats-secret"
	KeyGeoIPDB             = "geoip-db"
	KeyGeoTimeout          = "geo-timeout"
	KeyStatsTimeout        = "stats-timeout"
	KeyMaxActiveIdentities = "max-active-identities"
	KeyMaxBatchEvents      = "max-batch-events"
	KeyMaxBodyBytes        = "max-body-bytes"
	KeyTrustedProxies      = "trusted-proxies"
	KeyMetrics             = "metrics"
	KeyLogLevel            = "log-level"
	KeyAutoMigrate         = "auto-migrate"
	KeyDBMaxOpenConns      = "db-max-open-conns"
	KeyDBMaxIdleConns      = "db-max-idle-conns"
	KeyDBConnMaxLifetime   = "db-conn-max-lifetime"
)

// Config holds the server configuration.
type Config struct {
	Listen string
	// DSN format: username:password@tcp(host:port)/dbname?parseTime=true&loc=UTC
	DSN         string
	StatsSecret string

	// GeoIPDB is the path of a MaxMind country database; empty disables
	// geolocation and every identity resolves to "unknown".
	GeoIPDB    string
	GeoTimeout time.Duration

	StatsTimeout        time.Duration
	MaxActiveIdentities int
	MaxBatchEvents      int
	MaxBodyBytes        int64
	TrustedProxies      []string

	Metrics     bool
	LogLevel    string
	AutoMigrate bool

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
}

// Init loads .env files and binds environment variables to v.
func Init(v *viper.Viper) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// DatabaseFlags registers the flags every command touching the database
// needs.
func DatabaseFlags(fs *pflag.FlagSet) {
	fs.String(KeyDSN, "root:root@tcp(127.0.0.1:3306)/launcherstats?parseTime=true&loc=UTC", "MySQL data source name")
	fs.Int(KeyDBMaxOpenConns, 50, "maximum open database connections")
	fs.Int(KeyDBMaxIdleConns, 10, "maximum idle database connections")
	fs.Duration(KeyDBConnMaxLifetime, 30*time.Minute, "maximum lifetime of a database connection")
	fs.String(KeyLogLevel, "info", "log level (debug, info, warn, error)")
}

// ServeFlags registers the flags of the serve command.
func ServeFlags(fs *pflag.FlagSet) {
	DatabaseFlags(fs)
	StatsFlags(fs)
	fs.String(KeyListen, ":8080", "address the HTTP server listens on")
	fs.String(KeyStatsSecret, "", "shared secret for GET /stats (empty rejects every request)")
	fs.String(KeyGeoIPDB, "", "path to a MaxMind GeoLite2/GeoIP2 country database")
	fs.Duration(KeyGeoTimeout, 250*time.Millisecond, "upper bound of one country lookup")
	fs.Int(KeyMaxBatchEvents, 1000, "maximum events accepted in one telemetry batch")
	fs.Int64(KeyMaxBodyBytes, 1<<20, "maximum request body size in bytes")
	fs.StringSlice(KeyTrustedProxies, nil, "proxies whose X-Forwarded-For header is trusted")
	fs.Bool(KeyMetrics, true, "serve prometheus metrics on /metrics")
	fs.Bool(KeyAutoMigrate, true, "create or update tables on startup")
}

// StatsFlags registers the flags of the stats engine.
func StatsFlags(fs *pflag.FlagSet) {
	fs.Duration(KeyStatsTimeout, 15*time.Second, "upper bound of one stats computation")
	fs.Int(KeyMaxActiveIdentities, 1_000_000, "largest 30-day active identity set the stats engine will load")
}

// Load reads the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Listen:              v.GetString(KeyListen),
		DSN:                 v.GetString(KeyDSN),
		StatsSecret:         v.GetString(KeyStatsSecret),
		GeoIPDB:             v.GetString(KeyGeoIPDB),
		GeoTimeout:          v.GetDuration(KeyGeoTimeout),
		StatsTimeout:        v.GetDuration(KeyStatsTimeout),
		MaxActiveIdentities: v.GetInt(KeyMaxActiveIdentities),
		MaxBatchEvents:      v.GetInt(KeyMaxBatchEvents),
		MaxBodyBytes:        v.GetInt64(KeyMaxBodyBytes),
		TrustedProxies:      splitList(v.GetStringSlice(KeyTrustedProxies)),
		Metrics:             v.GetBool(KeyMetrics),
		LogLevel:            v.GetString(KeyLogLevel),
		AutoMigrate:         v.GetBool(KeyAutoMigrate),
		DBMaxOpenConns:      v.GetInt(KeyDBMaxOpenConns),
		DBMaxIdleConns:      v.GetInt(KeyDBMaxIdleConns),
		DBConnMaxLifetime:   v.GetDuration(KeyDBConnMaxLifetime),
	}
	if cfg.DSN == "" {
		return nil, xerrors.New("config: dsn is required")
	}
	if cfg.MaxActiveIdentities < 0 || cfg.MaxBatchEvents < 0 || cfg.MaxBodyBytes < 0 {
		return nil, xerrors.New("config: limits must not be negative")
	}
	return cfg, nil
}

// splitList flattens comma separated entries, which is how lists arrive
// from environment variables.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

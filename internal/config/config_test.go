package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	ServeFlags(fs)
	require.NoError(t, fs.Parse(args))

	v := viper.New()
	Init(v)
	require.NoError(t, v.BindPFlags(fs))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Empty(t, cfg.StatsSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.GeoTimeout)
	assert.Equal(t, 15*time.Second, cfg.StatsTimeout)
	assert.Equal(t, 1_000_000, cfg.MaxActiveIdentities)
	assert.Equal(t, 1000, cfg.MaxBatchEvents)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := Load(newViper(t,
		"--stats-secret=hunter2",
		"--listen=127.0.0.1:9000",
		"--trusted-proxies=10.0.0.1,10.0.0.2",
		"--metrics=false",
	))
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cfg.StatsSecret)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.TrustedProxies)
	assert.False(t, cfg.Metrics)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("LAUNCHERSTATS_STATS_SECRET", "from-env")
	t.Setenv("LAUNCHERSTATS_MAX_BATCH_EVENTS", "50")
	t.Setenv("LAUNCHERSTATS_GEO_TIMEOUT", "1s")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.StatsSecret)
	assert.Equal(t, 50, cfg.MaxBatchEvents)
	assert.Equal(t, time.Second, cfg.GeoTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(newViper(t, "--dsn="))
	require.Error(t, err)

	_, err = Load(newViper(t, "--max-batch-events=-1"))
	require.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " ", "c"}))
	assert.Nil(t, splitList(nil))
}

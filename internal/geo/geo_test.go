package geo

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"launcherstats/internal/metrics"
)

type lookupFunc func(ip net.IP) (string, error)

func (f lookupFunc) LookupCountry(ip net.IP) (string, error) { return f(ip) }

func newResolver(l Lookup, timeout time.Duration) (*Resolver, *metrics.Metrics) {
	m := metrics.NewNop()
	return NewResolver(l, timeout, zap.NewNop().Sugar(), m), m
}

func TestCountry_Hit(t *testing.T) {
	r, m := newResolver(lookupFunc(func(ip net.IP) (string, error) {
		assert.Equal(t, "81.2.69.142", ip.String())
		return "GB", nil
	}), time.Second)

	assert.Equal(t, "GB", r.Country(context.Background(), "81.2.69.142"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeoLookups.WithLabelValues(metrics.GeoHit)))
}

func TestCountry_Degrades(t *testing.T) {
	failing := lookupFunc(func(net.IP) (string, error) { return "", errors.New("corrupt record") })
	empty := lookupFunc(func(net.IP) (string, error) { return "", nil })
	called := false
	spy := lookupFunc(func(net.IP) (string, error) { called = true; return "US", nil })

	tests := []struct {
		name   string
		lookup Lookup
		ip     string
	}{
		{"no database", nil, "81.2.69.142"},
		{"lookup error", failing, "81.2.69.142"},
		{"not in database", empty, "81.2.69.142"},
		{"garbage address", spy, "not-an-ip"},
		{"loopback", spy, "127.0.0.1"},
		{"private", spy, "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newResolver(tt.lookup, time.Second)
			assert.Equal(t, Unknown, r.Country(context.Background(), tt.ip))
		})
	}
	assert.False(t, called)
}

func TestCountry_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := lookupFunc(func(net.IP) (string, error) {
		<-release
		return "FR", nil
	})
	r, m := newResolver(slow, 10*time.Millisecond)

	start := time.Now()
	assert.Equal(t, Unknown, r.Country(context.Background(), "81.2.69.142"))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeoLookups.WithLabelValues(metrics.GeoTimeout)))
}

func TestCountry_NilResolver(t *testing.T) {
	var r *Resolver
	assert.Equal(t, Unknown, r.Country(context.Background(), "81.2.69.142"))
}

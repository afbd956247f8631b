// Package geo resolves client IP addresses to two-letter country codes. A
// lookup never fails the caller: misses, errors and timeouts all resolve to
// Unknown.
package geo

import (
	"context"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"launcherstats/internal/metrics"
)

// Unknown is returned whenever no country could be determined.
const Unknown = "unknown"

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 250 * time.Millisecond

// Lookup is a country database.
type Lookup interface {
	LookupCountry(ip net.IP) (string, error)
}

// Resolver wraps a Lookup with a deadline.
type Resolver struct {
	lookup  Lookup
	timeout time.Duration
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewResolver returns a Resolver. A nil lookup always resolves to Unknown.
func NewResolver(lookup Lookup, timeout time.Duration, log *zap.SugaredLogger, m *metrics.Metrics) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{lookup: lookup, timeout: timeout, log: log, metrics: m}
}

// Country returns the ISO country code of rawIP, or Unknown.
func (r *Resolver) Country(ctx context.Context, rawIP string) string {
	if r == nil || r.lookup == nil {
		return Unknown
	}
	ip := net.ParseIP(rawIP)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		r.observe(metrics.GeoMiss)
		return Unknown
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Buffered so the lookup goroutine can finish after we gave up on it.
	result := make(chan string, 1)
	go func() {
		code, err := r.lookup.LookupCountry(ip)
		if err != nil {
			r.log.Debugw("country lookup failed", "ip", rawIP, "error", err)
			code = ""
		}
		result <- code
	}()

	select {
	case code := <-result:
		if code == "" {
			r.observe(metrics.GeoMiss)
			return Unknown
		}
		r.observe(metrics.GeoHit)
		return code
	case <-ctx.Done():
		r.observe(metrics.GeoTimeout)
		r.log.Debugw("country lookup timed out", "ip", rawIP, "timeout", r.timeout)
		return Unknown
	}
}

func (r *Resolver) observe(result string) {
	if r.metrics != nil {
		r.metrics.GeoLookups.WithLabelValues(result).Inc()
	}
}

// MaxMind reads a GeoLite2/GeoIP2 country or city database.
type MaxMind struct {
	reader *geoip2.Reader
}

// OpenMaxMind opens the mmdb file at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("open geoip database %q: %w", path, err)
	}
	return &MaxMind{reader: reader}, nil
}

// LookupCountry implements Lookup.
func (m *MaxMind) LookupCountry(ip net.IP) (string, error) {
	record, err := m.reader.Country(ip)
	if err != nil {
		return "", err
	}
	return record.Country.IsoCode, nil
}

// Close releases the database.
func (m *MaxMind) Close() error {
	return m.reader.Close()
}

// Package telemetry implements the ingestion operations: heartbeats,
// hardware reports and event batches. It holds no state of its own between
// calls; every write goes straight to the Store.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"launcherstats/internal/metrics"
	"launcherstats/internal/models"
)

// DefaultMaxBatchEvents caps the events accepted in one batch.
const DefaultMaxBatchEvents = 1000

// Store is the persistence the service writes through.
type Store interface {
	UpsertIdentity(ctx context.Context, userID string, seen time.Time, country *string) error
	CreateSession(ctx context.Context, session *models.Session) error
	TouchSession(ctx context.Context, sessionID, userID string, at time.Time) (int64, error)
	UpsertHardware(ctx context.Context, profile *models.HardwareProfile) error
	InsertEvents(ctx context.Context, events []models.Event) (int, error)
}

// CountryResolver maps a source IP to a country code, never failing.
type CountryResolver interface {
	Country(ctx context.Context, ip string) string
}

// Options configures a Service. Store and Resolver are required.
type Options struct {
	Store          Store
	Resolver       CountryResolver
	Clock          quartz.Clock
	Logger         *zap.SugaredLogger
	Metrics        *metrics.Metrics
	MaxBatchEvents int
	// NewSessionID generates session ids; defaults to random UUIDs.
	NewSessionID func() string
}

// Service implements the ingestion operations.
type Service struct {
	store     Store
	resolver  CountryResolver
	clock     quartz.Clock
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics
	maxEvents int
	newID     func() string
}

// New returns a Service with defaults filled in.
func New(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		resolver:  opts.Resolver,
		clock:     opts.Clock,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		maxEvents: opts.MaxBatchEvents,
		newID:     opts.NewSessionID,
	}
	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNop()
	}
	if s.maxEvents <= 0 {
		s.maxEvents = DefaultMaxBatchEvents
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// HeartbeatInput is one liveness report.
type HeartbeatInput struct {
	UserID     string
	SessionID  string
	AppVersion string
	SourceIP   string
}

// ReportHeartbeat records that the identity is alive. Without a session id a
// new session is opened and its id returned; with one, that session is
// extended if it belongs to the identity and the same id is returned.
func (s *Service) ReportHeartbeat(ctx context.Context, in HeartbeatInput) (string, error) {
	userID := strings.TrimSpace(in.UserID)
	if err := checkUserID(userID); err != nil {
		return "", err
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if len(sessionID) > models.SessionIDSize {
		return "", invalid("sessionId", "is too long")
	}
	if len(in.AppVersion) > models.AppVersionSize {
		return "", invalid("appVersion", "is too long")
	}

	now := s.clock.Now().UTC()
	country := s.resolver.Country(ctx, in.SourceIP)
	if err := s.store.UpsertIdentity(ctx, userID, now, &country); err != nil {
		return "", s.storageFailure("heartbeat: upsert identity", userID, err)
	}

	if sessionID != "" {
		n, err := s.store.TouchSession(ctx, sessionID, userID, now)
		if err != nil {
			return "", s.storageFailure("heartbeat: touch session", userID, err)
		}
		if n == 0 {
			s.log.Debugw("heartbeat matched no session", "user_id", userID, "session_id", sessionID)
		}
		return sessionID, nil
	}

	version := in.AppVersion
	if version == "" {
		version = models.UnknownAppVersion
	}
	session := &models.Session{
		ID:         s.newID(),
		UserID:     userID,
		StartTime:  now,
		EndTime:    now,
		AppVersion: version,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", s.storageFailure("heartbeat: create session", userID, err)
	}
	s.metrics.SessionsCreated.Inc()
	return session.ID, nil
}

// HardwareInput describes the reporting machine.
type HardwareInput struct {
	UserID    string
	OS        string
	OSVersion string
	RAM       string
	GPU       string
	CPU       string
}

// ReportHardware replaces the hardware profile of the identity.
func (s *Service) ReportHardware(ctx context.Context, in HardwareInput) error {
	userID := strings.TrimSpace(in.UserID)
	if err := checkUserID(userID); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		value string
		size  int
	}{
		{"os", in.OS, models.OSSize},
		{"osVersion", in.OSVersion, models.OSVersionSize},
		{"ram", in.RAM, models.RAMSize},
		{"gpu", in.GPU, models.GPUSize},
		{"cpu", in.CPU, models.CPUSize},
	} {
		if len(f.value) > f.size {
			return invalid(f.name, "is too long")
		}
	}

	profile := &models.HardwareProfile{
		UserID:    userID,
		OS:        in.OS,
		OSVersion: in.OSVersion,
		RAM:       in.RAM,
		GPU:       in.GPU,
		CPU:       in.CPU,
		UpdatedAt: s.clock.Now().UTC(),
	}
	if err := s.store.UpsertHardware(ctx, profile); err != nil {
		return s.storageFailure("hardware: upsert profile", userID, err)
	}
	return nil
}

// EventInput is one element of an event batch. A nil Timestamp means the
// event happened when it was received.
type EventInput struct {
	Type      string
	Metadata  json.RawMessage
	Timestamp *time.Time
}

// IngestEvents appends a batch of events for the identity and returns how
// many rows were written. A nil batch is rejected; an empty one writes
// nothing besides the identity. Events are not deduplicated.
func (s *Service) IngestEvents(ctx context.Context, userID string, events []EventInput) (int, error) {
	userID = strings.TrimSpace(userID)
	if err := checkUserID(userID); err != nil {
		return 0, err
	}
	if events == nil {
		return 0, invalid("events", "must be a list")
	}
	if len(events) > s.maxEvents {
		return 0, invalid("events", "exceeds the batch limit")
	}
	for _, e := range events {
		if e.Type == "" {
			return 0, invalid("events.type", "is required")
		}
		if len(e.Type) > models.EventTypeSize {
			return 0, invalid("events.type", "is too long")
		}
	}

	now := s.clock.Now().UTC()
	if err := s.store.UpsertIdentity(ctx, userID, now, nil); err != nil {
		return 0, s.storageFailure("telemetry: upsert identity", userID, err)
	}

	rows := make([]models.Event, 0, len(events))
	for _, e := range events {
		created := now
		if e.Timestamp != nil {
			created = e.Timestamp.UTC()
		}
		rows = append(rows, models.Event{
			UserID:    userID,
			Type:      e.Type,
			Metadata:  metadataJSON(e.Metadata),
			CreatedAt: created,
		})
	}

	n, err := s.store.InsertEvents(ctx, rows)
	if err != nil {
		return 0, s.storageFailure("telemetry: insert events", userID, err)
	}
	s.metrics.EventsIngested.Add(float64(n))
	return n, nil
}

func metadataJSON(raw json.RawMessage) datatypes.JSON {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return datatypes.JSON(append([]byte(nil), trimmed...))
}

func checkUserID(userID string) error {
	if userID == "" {
		return invalid("userId", "is required")
	}
	if len(userID) > models.UserIDSize {
		return invalid("userId", "is too long")
	}
	return nil
}

func (s *Service) storageFailure(op, userID string, err error) error {
	s.log.Errorw("storage failure", "op", op, "user_id", userID, "error", err)
	return &StorageError{Op: op, Err: err}
}

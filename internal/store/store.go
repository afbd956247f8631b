// Package store is the persistence layer behind the telemetry service. All
// concurrency control is delegated to MySQL unique keys; nothing here reads
// before it writes.
package store

import (
	"context"
	"time"

	"golang.org/x/xerrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"launcherstats/internal/models"
)

// DefaultBatchSize bounds the rows per INSERT statement in InsertEvents.
const DefaultBatchSize = 200

// Store wraps a gorm connection with the operations the service needs.
type Store struct {
	db        *gorm.DB
	batchSize int
}

// New returns a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{db: db, batchSize: DefaultBatchSize}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// UpsertIdentity creates the identity or advances its last_seen. last_seen
// never moves backwards. A nil country leaves the stored country untouched.
func (s *Store) UpsertIdentity(ctx context.Context, userID string, seen time.Time, country *string) error {
	identity := models.Identity{
		UserID:   userID,
		LastSeen: seen.UTC(),
		Country:  country,
	}
	updates := map[string]any{
		"last_seen": gorm.Expr("GREATEST(`last_seen`, VALUES(`last_seen`))"),
	}
	if country != nil {
		updates["country"] = gorm.Expr("VALUES(`country`)")
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoUpdates: clause.Assignments(updates)}).
		Create(&identity).Error
	if err != nil {
		return xerrors.Errorf("upsert identity %q: %w", userID, err)
	}
	return nil
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return xerrors.Errorf("create session for %q: %w", session.UserID, err)
	}
	return nil
}

// TouchSession advances end_time of the session, scoped to its owner. It
// reports how many rows matched; a session owned by another identity matches
// none and is not an error.
func (s *Store) TouchSession(ctx context.Context, sessionID, userID string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Update("end_time", gorm.Expr("GREATEST(`end_time`, ?)", at.UTC()))
	if res.Error != nil {
		return 0, xerrors.Errorf("touch session %q: %w", sessionID, res.Error)
	}
	return res.RowsAffected, nil
}

// UpsertHardware creates or fully replaces the hardware profile of an identity.
func (s *Store) UpsertHardware(ctx context.Context, profile *models.HardwareProfile) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(profile).Error
	if err != nil {
		return xerrors.Errorf("upsert hardware for %q: %w", profile.UserID, err)
	}
	return nil
}

// InsertEvents writes the batch in one transaction, so either every row is
// stored or none is.
func (s *Store) InsertEvents(ctx context.Context, events []models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&events, s.batchSize).Error
	})
	if err != nil {
		return 0, xerrors.Errorf("insert %d events: %w", len(events), err)
	}
	return len(events), nil
}

// ActiveLastSeen returns last_seen of every identity seen within [from, to],
// reading at most limit rows.
func (s *Store) ActiveLastSeen(ctx context.Context, from, to time.Time, limit int) ([]time.Time, error) {
	var seen []time.Time
	err := s.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("last_seen >= ? AND last_seen <= ?", from.UTC(), to.UTC()).
		Limit(limit).
		Pluck("last_seen", &seen).Error
	if err != nil {
		return nil, xerrors.Errorf("query active identities: %w", err)
	}
	return seen, nil
}

// CountEvents counts all events of the given type, over all time.
func (s *Store) CountEvents(ctx context.Context, eventType string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("type = ?", eventType).
		Count(&n).Error
	if err != nil {
		return 0, xerrors.Errorf("count %s events: %w", eventType, err)
	}
	return n, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return xerrors.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

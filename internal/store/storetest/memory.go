// Package storetest provides an in-memory store with the same semantics as
// the MySQL store, for use in tests of the layers above it.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"launcherstats/internal/models"
)

// Memory is a concurrency-safe in-memory store. Set Err to make every
// operation fail with it.
type Memory struct {
	mu         sync.Mutex
	identities map[string]models.Identity
	sessions   map[string]models.Session
	hardware   map[string]models.HardwareProfile
	events     []models.Event
	nextID     uint64

	Err error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		identities: map[string]models.Identity{},
		sessions:   map[string]models.Session{},
		hardware:   map[string]models.HardwareProfile{},
	}
}

func (m *Memory) UpsertIdentity(_ context.Context, userID string, seen time.Time, country *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	seen = seen.UTC()
	cur, ok := m.identities[userID]
	if !ok {
		m.identities[userID] = models.Identity{UserID: userID, LastSeen: seen, Country: country, CreatedAt: seen}
		return nil
	}
	if seen.After(cur.LastSeen) {
		cur.LastSeen = seen
	}
	if country != nil {
		c := *country
		cur.Country = &c
	}
	m.identities[userID] = cur
	return nil
}

func (m *Memory) CreateSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *Memory) TouchSession(_ context.Context, sessionID, userID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return 0, nil
	}
	if at.After(s.EndTime) {
		s.EndTime = at.UTC()
	}
	m.sessions[sessionID] = s
	return 1, nil
}

func (m *Memory) UpsertHardware(_ context.Context, profile *models.HardwareProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.hardware[profile.UserID] = *profile
	return nil
}

func (m *Memory) InsertEvents(_ context.Context, events []models.Event) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	for _, e := range events {
		m.nextID++
		e.ID = m.nextID
		m.events = append(m.events, e)
	}
	return len(events), nil
}

func (m *Memory) ActiveLastSeen(_ context.Context, from, to time.Time, limit int) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var seen []time.Time
	for _, id := range m.identities {
		if id.LastSeen.Before(from) || id.LastSeen.After(to) {
			continue
		}
		seen = append(seen, id.LastSeen)
	}
	sort.Slice(seen, func(i, j int) bool { return seen[i].Before(seen[j]) })
	if limit > 0 && len(seen) > limit {
		seen = seen[:limit]
	}
	return seen, nil
}

func (m *Memory) CountEvents(_ context.Context, eventType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for _, e := range m.events {
		if e.Type == eventType {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}

// Identity returns a copy of the stored identity.
func (m *Memory) Identity(userID string) (models.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[userID]
	return id, ok
}

// Session returns a copy of the stored session.
func (m *Memory) Session(sessionID string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Sessions counts stored sessions.
func (m *Memory) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Hardware returns a copy of the stored profile.
func (m *Memory) Hardware(userID string) (models.HardwareProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.hardware[userID]
	return p, ok
}

// Events returns the events of userID in insertion order.
func (m *Memory) Events(userID string) []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, e := range m.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

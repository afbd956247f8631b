package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launcherstats/internal/models"
)

var epoch = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestMemory_UpsertIdentityKeepsLatestLastSeen(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertIdentity(ctx, "u1", epoch, nil))
	require.NoError(t, m.UpsertIdentity(ctx, "u1", epoch.Add(-time.Hour), nil))

	id, ok := m.Identity("u1")
	require.True(t, ok)
	assert.True(t, id.LastSeen.Equal(epoch))
	assert.True(t, id.CreatedAt.Equal(epoch))

	require.NoError(t, m.UpsertIdentity(ctx, "u1", epoch.Add(time.Minute), nil))
	id, _ = m.Identity("u1")
	assert.True(t, id.LastSeen.Equal(epoch.Add(time.Minute)))
}

func TestMemory_TouchSessionKeepsLatestEndTime(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateSession(ctx, &models.Session{
		ID: "s1", UserID: "u1", StartTime: epoch, EndTime: epoch, AppVersion: "1.0.0",
	}))

	n, err := m.TouchSession(ctx, "s1", "u1", epoch.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, _ := m.Session("s1")
	assert.True(t, s.EndTime.Equal(epoch))

	n, err = m.TouchSession(ctx, "s1", "u1", epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	s, _ = m.Session("s1")
	assert.True(t, s.EndTime.Equal(epoch.Add(time.Minute)))
}

func TestMemory_TouchSessionScopedToOwner(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateSession(ctx, &models.Session{ID: "s1", UserID: "u1", StartTime: epoch, EndTime: epoch}))

	n, err := m.TouchSession(ctx, "s1", "u2", epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	s, _ := m.Session("s1")
	assert.True(t, s.EndTime.Equal(epoch))
}

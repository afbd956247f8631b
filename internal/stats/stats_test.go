package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launcherstats/internal/models"
	"launcherstats/internal/store/storetest"
)

var asOf = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func seed(t *testing.T, mem *storetest.Memory, users map[string]time.Time) {
	t.Helper()
	for id, seen := range users {
		require.NoError(t, mem.UpsertIdentity(context.Background(), id, seen, nil))
	}
}

func newEngine(t *testing.T, mem *storetest.Memory) *Engine {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(asOf)
	return NewEngine(Options{Source: mem, Clock: clock})
}

func TestBuildDailySeries(t *testing.T) {
	series := BuildDailySeries(asOf, []time.Time{
		asOf,
		asOf.Add(-time.Hour),
		asOf.Add(-3 * day),
		asOf.AddDate(0, 0, -29),
		asOf.AddDate(0, 0, -30),
		asOf.Add(time.Hour * 24 * 365),
	})

	require.Len(t, series, WindowDays)
	assert.Equal(t, "2026-09-16", series[0].Date)
	assert.Equal(t, "2026-10-15", series[WindowDays-1].Date)
	for i := 1; i < len(series); i++ {
		assert.Less(t, series[i-1].Date, series[i].Date)
	}

	counts := map[string]int64{}
	var total int64
	for _, p := range series {
		counts[p.Date] = p.Count
		total += p.Count
	}
	assert.Equal(t, int64(2), counts["2026-10-15"])
	assert.Equal(t, int64(1), counts["2026-10-12"])
	assert.Equal(t, int64(1), counts["2026-09-16"])
	assert.Equal(t, int64(4), total)
}

func TestBuildDailySeries_Empty(t *testing.T) {
	series := BuildDailySeries(asOf, nil)
	require.Len(t, series, WindowDays)
	for _, p := range series {
		assert.Zero(t, p.Count)
	}
}

func TestBuildDailySeries_NormalizesTimezone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2026-10-15 05:00 in Tokyo is 2026-10-14 20:00 UTC.
	series := BuildDailySeries(asOf.In(tokyo), []time.Time{time.Date(2026, 10, 15, 5, 0, 0, 0, tokyo)})
	for _, p := range series {
		if p.Date == "2026-10-14" {
			assert.Equal(t, int64(1), p.Count)
		} else {
			assert.Zero(t, p.Count, p.Date)
		}
	}
}

func TestComputeAt(t *testing.T) {
	mem := storetest.NewMemory()
	seed(t, mem, map[string]time.Time{
		"today":     asOf.Add(-time.Minute),
		"last-week": asOf.Add(-7 * day),
		"day-20":    asOf.Add(-20 * day),
		"ancient":   asOf.Add(-90 * day),
	})
	_, err := mem.InsertEvents(context.Background(), []models.Event{
		{UserID: "today", Type: models.LaunchEventType, CreatedAt: asOf.Add(-400 * day)},
		{UserID: "today", Type: models.LaunchEventType, CreatedAt: asOf},
		{UserID: "today", Type: "MOD_LOADED", CreatedAt: asOf},
	})
	require.NoError(t, err)

	summary, err := newEngine(t, mem).ComputeAt(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.ActiveUsers30d)
	assert.Equal(t, int64(2), summary.ActiveUsers14d)
	assert.Equal(t, int64(2), summary.TotalLaunches)
	require.Len(t, summary.DailyActiveUsers, WindowDays)
}

func TestComputeAt_WindowEdges(t *testing.T) {
	const eps = time.Second
	mem := storetest.NewMemory()
	seed(t, mem, map[string]time.Time{
		"inside-30":  asOf.Add(-30*day + eps),
		"outside-30": asOf.Add(-30*day - eps),
		"inside-14":  asOf.Add(-14*day + eps),
		"outside-14": asOf.Add(-14*day - eps),
	})

	summary, err := newEngine(t, mem).ComputeAt(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.ActiveUsers30d)
	assert.Equal(t, int64(1), summary.ActiveUsers14d)

	// inside-30 falls on the 30th calendar day back, which has no bucket.
	var bucketed int64
	for _, p := range summary.DailyActiveUsers {
		bucketed += p.Count
	}
	assert.Equal(t, int64(2), bucketed)
}

func TestComputeAt_Idempotent(t *testing.T) {
	mem := storetest.NewMemory()
	users := map[string]time.Time{}
	for i := 0; i < 40; i++ {
		users[fmt.Sprintf("u%d", i)] = asOf.Add(-time.Duration(i) * 18 * time.Hour)
	}
	seed(t, mem, users)
	engine := newEngine(t, mem)

	first, err := engine.ComputeAt(context.Background(), asOf)
	require.NoError(t, err)
	second, err := engine.ComputeAt(context.Background(), asOf)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCompute_UsesClock(t *testing.T) {
	mem := storetest.NewMemory()
	seed(t, mem, map[string]time.Time{"u1": asOf.Add(-time.Hour)})

	summary, err := newEngine(t, mem).Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", summary.DailyActiveUsers[WindowDays-1].Date)
	assert.Equal(t, int64(1), summary.DailyActiveUsers[WindowDays-1].Count)
}

func TestComputeAt_WorkingSetBound(t *testing.T) {
	mem := storetest.NewMemory()
	seed(t, mem, map[string]time.Time{
		"a": asOf.Add(-time.Hour),
		"b": asOf.Add(-2 * time.Hour),
		"c": asOf.Add(-3 * time.Hour),
	})
	engine := NewEngine(Options{Source: mem, MaxActiveIdentities: 2})

	_, err := engine.ComputeAt(context.Background(), asOf)
	require.ErrorIs(t, err, ErrWorkingSetTooLarge)
}

func TestComputeAt_SourceError(t *testing.T) {
	mem := storetest.NewMemory()
	boom := errors.New("db down")
	mem.Err = boom

	_, err := newEngine(t, mem).ComputeAt(context.Background(), asOf)
	require.ErrorIs(t, err, boom)
}

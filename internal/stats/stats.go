package stats

import (
	"context"
	"sort"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"launcherstats/internal/metrics"
	"launcherstats/internal/models"
)

const (
	// WindowDays is the length of the daily series and of the long window.
	WindowDays = 30
	// ShortWindowDays is the length of the short active-user window.
	ShortWindowDays = 14

	// DefaultMaxActiveIdentities bounds the in-memory working set.
	DefaultMaxActiveIdentities = 1_000_000
	// DefaultTimeout bounds one computation.
	DefaultTimeout = 15 * time.Second

	dateLayout = "2006-01-02"
)

// ErrWorkingSetTooLarge is returned when more identities are active than
// the engine is configured to hold in memory.
var ErrWorkingSetTooLarge = xerrors.New("active identities exceed the configured bound")

// DailyCount is one point of the daily active user series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Summary is the dashboard payload.
type Summary struct {
	ActiveUsers30d   int64        `json:"active_users_30d"`
	ActiveUsers14d   int64        `json:"active_users_14d"`
	TotalLaunches    int64        `json:"total_launches"`
	DailyActiveUsers []DailyCount `json:"daily_active_users"`
}

// Source is the read side of the store.
type Source interface {
	ActiveLastSeen(ctx context.Context, from, to time.Time, limit int) ([]time.Time, error)
	CountEvents(ctx context.Context, eventType string) (int64, error)
}

// Options configures an Engine. Source is required.
type Options struct {
	Source              Source
	Clock               quartz.Clock
	Logger              *zap.SugaredLogger
	Metrics             *metrics.Metrics
	MaxActiveIdentities int
	Timeout             time.Duration
}

// Engine computes active user statistics from the identity and event tables.
// Cost is linear in the identities active in the last WindowDays, never in
// the total number of identities.
type Engine struct {
	source    Source
	clock     quartz.Clock
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics
	maxActive int
	timeout   time.Duration
}

// NewEngine returns an Engine with defaults filled in.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		source:    opts.Source,
		clock:     opts.Clock,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		maxActive: opts.MaxActiveIdentities,
		timeout:   opts.Timeout,
	}
	if e.clock == nil {
		e.clock = quartz.NewReal()
	}
	if e.log == nil {
		e.log = zap.NewNop().Sugar()
	}
	if e.metrics == nil {
		e.metrics = metrics.NewNop()
	}
	if e.maxActive <= 0 {
		e.maxActive = DefaultMaxActiveIdentities
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	return e
}

// Compute returns the summary as of now.
func (e *Engine) Compute(ctx context.Context) (*Summary, error) {
	return e.ComputeAt(ctx, e.clock.Now())
}

// ComputeAt returns the summary as of asOf. It only reads, so repeated calls
// over unchanged data return the same result.
func (e *Engine) ComputeAt(ctx context.Context, asOf time.Time) (*Summary, error) {
	start := e.clock.Now()
	defer func() {
		e.metrics.StatsSeconds.Observe(e.clock.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	asOf = asOf.UTC()
	from30 := asOf.Add(-WindowDays * 24 * time.Hour)
	from14 := asOf.Add(-ShortWindowDays * 24 * time.Hour)

	lastSeen, err := e.source.ActiveLastSeen(ctx, from30, asOf, e.maxActive+1)
	if err != nil {
		return nil, xerrors.Errorf("load active identities: %w", err)
	}
	if len(lastSeen) > e.maxActive {
		e.log.Errorw("active identity working set too large", "limit", e.maxActive)
		return nil, ErrWorkingSetTooLarge
	}

	var active14 int64
	for _, ts := range lastSeen {
		if !ts.Before(from14) {
			active14++
		}
	}

	launches, err := e.source.CountEvents(ctx, models.LaunchEventType)
	if err != nil {
		return nil, xerrors.Errorf("count launches: %w", err)
	}

	return &Summary{
		ActiveUsers30d:   int64(len(lastSeen)),
		ActiveUsers14d:   active14,
		TotalLaunches:    launches,
		DailyActiveUsers: BuildDailySeries(asOf, lastSeen),
	}, nil
}

// BuildDailySeries buckets last-seen timestamps into the WindowDays UTC
// calendar days ending at asOf, oldest first. Timestamps whose date is not
// one of those days are dropped.
func BuildDailySeries(asOf time.Time, lastSeen []time.Time) []DailyCount {
	asOf = asOf.UTC()
	buckets := make(map[string]int64, WindowDays)
	for d := 0; d < WindowDays; d++ {
		buckets[asOf.AddDate(0, 0, -d).Format(dateLayout)] = 0
	}

	for _, ts := range lastSeen {
		key := ts.UTC().Format(dateLayout)
		if _, ok := buckets[key]; ok {
			buckets[key]++
		}
	}

	res := make([]DailyCount, 0, WindowDays)
	for date, n := range buckets {
		res = append(res, DailyCount{Date: date, Count: n})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date < res[j].Date })
	return res
}

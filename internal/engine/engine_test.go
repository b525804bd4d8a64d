package engine

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quelld/quell/internal/match"
	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/pattern"
	"github.com/quelld/quell/internal/rules"
)

// memRuleStore is an in-memory rule store.
type memRuleStore struct {
	mu    sync.Mutex
	rules []model.Rule
	saves int
}

func (m *memRuleStore) GetRules(_ context.Context) ([]model.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Rule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

func (m *memRuleStore) SaveRules(_ context.Context, rules []model.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make([]model.Rule, len(rules))
	copy(m.rules, rules)
	m.saves++
	return nil
}

func (m *memRuleStore) snapshot() []model.Rule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// memHistory is an in-memory history log with content-tuple dedup.
type memHistory struct {
	mu      sync.Mutex
	entries []model.Notification
}

func (m *memHistory) GetHistory(_ context.Context) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *memHistory) SaveNotification(_ context.Context, n *model.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	isNew := true
	for i, e := range m.entries {
		if e.AppLabel == n.AppLabel && e.PackageName == n.PackageName && e.Title == n.Title && e.Text == n.Text {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			isNew = false
			break
		}
	}
	m.entries = append([]model.Notification{*n}, m.entries...)
	return isNew, nil
}

func (m *memHistory) DeleteNotification(_ context.Context, _ *model.Notification) error { return nil }
func (m *memHistory) DeleteAllForPackage(_ context.Context, _ string) error             { return nil }
func (m *memHistory) Clear(_ context.Context) error                                     { return nil }

func (m *memHistory) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// memUnmonitored is an in-memory unmonitored-package set.
type memUnmonitored struct {
	mu   sync.Mutex
	pkgs map[string]bool
}

func (m *memUnmonitored) Contains(_ context.Context, pkg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pkgs[pkg], nil
}

func (m *memUnmonitored) Add(_ context.Context, pkg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pkgs == nil {
		m.pkgs = make(map[string]bool)
	}
	m.pkgs[pkg] = true
	return nil
}

func (m *memUnmonitored) Remove(_ context.Context, pkg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pkgs, pkg)
	return nil
}

func (m *memUnmonitored) List(_ context.Context) ([]string, error) { return nil, nil }

// memStats counts blocked increments.
type memStats struct {
	mu    sync.Mutex
	total int64
}

func (m *memStats) IncrementBlocked(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	return nil
}

func (m *memStats) BlockedTotal(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

// memSink records cancel commands.
type memSink struct {
	mu       sync.Mutex
	canceled []string
}

func (m *memSink) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canceled = append(m.canceled, id)
	return nil
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.canceled)
}

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	processor   *Processor
	store       *memRuleStore
	blocked     *memHistory
	allowed     *memHistory
	unmonitored *memUnmonitored
	stats       *memStats
	sink        *memSink
	clock       *testClock
	broadcaster *Broadcaster
}

func newFixture(t *testing.T, ruleSet []model.Rule) *fixture {
	t.Helper()

	cache, err := pattern.NewCache(64)
	require.NoError(t, err)

	f := &fixture{
		store:       &memRuleStore{rules: ruleSet},
		blocked:     &memHistory{},
		allowed:     &memHistory{},
		unmonitored: &memUnmonitored{},
		stats:       &memStats{},
		sink:        &memSink{},
		clock:       &testClock{now: time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)},
		broadcaster: NewBroadcaster(),
	}

	f.processor = NewProcessor(Deps{
		Rules:       rules.NewRepository(f.store),
		Classifier:  match.NewClassifier(match.NewMatcher(cache)),
		Sink:        f.sink,
		Blocked:     f.blocked,
		Allowed:     f.allowed,
		Unmonitored: f.unmonitored,
		Stats:       f.stats,
		Observer:    f.broadcaster,
	}, Config{Now: f.clock.Now})

	f.processor.Start(context.Background())
	return f
}

func denyPromo(pkg string) model.Rule {
	return model.Rule{
		PackageName: pkg,
		TitleFilter: "promo",
		TitleMatch:  model.MatchContains,
		TextMatch:   model.MatchContains,
		Kind:        model.KindDeny,
		Enabled:     true,
	}
}

func event(pkg, title, text string) *model.Notification {
	return &model.Notification{
		ID:          "evt-" + pkg + "-" + title,
		AppLabel:    "App",
		PackageName: pkg,
		Title:       title,
		Text:        text,
		Timestamp:   1700000000000,
	}
}

func TestProcessor_BlocksAndRecords(t *testing.T) {
	f := newFixture(t, []model.Rule{denyPromo("com.app.x")})
	ctx := context.Background()

	evt := event("com.app.x", "Big Promo Sale", "")
	f.processor.Process(ctx, evt)
	f.processor.Stop()

	assert.Equal(t, 1, f.sink.count(), "blocked event canceled")
	assert.Equal(t, 1, f.blocked.len())
	assert.Equal(t, 0, f.allowed.len())

	total, err := f.stats.BlockedTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	stored := f.store.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].HitCount, "matched deny rule hit count incremented")
}

func TestProcessor_AllowsAndRecords(t *testing.T) {
	f := newFixture(t, []model.Rule{denyPromo("com.app.x")})
	ctx := context.Background()

	f.processor.Process(ctx, event("com.app.x", "Your order shipped", ""))
	f.processor.Stop()

	assert.Zero(t, f.sink.count())
	assert.Equal(t, 0, f.blocked.len())
	assert.Equal(t, 1, f.allowed.len())

	stored := f.store.snapshot()
	assert.Zero(t, stored[0].HitCount)
}

func TestProcessor_DropsBlankEvents(t *testing.T) {
	f := newFixture(t, []model.Rule{denyPromo("com.app.x")})
	ctx := context.Background()

	f.processor.Process(ctx, &model.Notification{PackageName: "com.app.x"})
	f.processor.Process(ctx, nil)
	f.processor.Stop()

	assert.Zero(t, f.sink.count())
	assert.Equal(t, 0, f.blocked.len())
	assert.Equal(t, 0, f.allowed.len())
}

func TestProcessor_DebounceSuppressesRecordingOnly(t *testing.T) {
	f := newFixture(t, []model.Rule{denyPromo("com.app.x")})
	ctx := context.Background()

	f.processor.Process(ctx, event("com.app.x", "promo one", ""))
	f.clock.Advance(1 * time.Second)
	f.processor.Process(ctx, event("com.app.x", "promo one", ""))
	f.processor.Stop()

	// Cancellation and hit counting happen for both deliveries; only the
	// second recording is suppressed.
	assert.Equal(t, 2, f.sink.count())
	assert.Equal(t, 1, f.blocked.len())

	total, err := f.stats.BlockedTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	stored := f.store.snapshot()
	assert.Equal(t, 2, stored[0].HitCount)
}

func TestProcessor_DebounceExpires(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.processor.Process(ctx, event("com.app.x", "hello", ""))
	f.clock.Advance(6 * time.Second)
	f.processor.Process(ctx, event("com.app.x", "hello", ""))
	f.processor.Stop()

	// Same content tuple: the second write refreshes the entry, so the
	// log still holds one entry but both writes happened.
	assert.Equal(t, 1, f.allowed.len())
}

func TestProcessor_BlockedDuplicateByContentDoesNotBumpStats(t *testing.T) {
	f := newFixture(t, []model.Rule{denyPromo("com.app.x")})
	ctx := context.Background()

	f.processor.Process(ctx, event("com.app.x", "promo one", ""))
	f.clock.Advance(10 * time.Second)
	f.processor.Process(ctx, event("com.app.x", "promo one", ""))
	f.processor.Stop()

	// Outside the debounce window both events are recorded, but the
	// second is a content duplicate: refreshed, not new.
	assert.Equal(t, 1, f.blocked.len())

	total, err := f.stats.BlockedTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestProcessor_UnmonitoredPackageNotRecorded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.unmonitored.Add(ctx, "com.quiet"))

	f.processor.Process(ctx, event("com.quiet", "hello", ""))
	f.processor.Stop()

	assert.Equal(t, 0, f.allowed.len())
	assert.Equal(t, 0, f.blocked.len())
}

func TestProcessor_UnmonitoredDoesNotGateBlocking(t *testing.T) {
	f := newFixture(t, []model.Rule{denyPromo("com.quiet")})
	ctx := context.Background()

	require.NoError(t, f.unmonitored.Add(ctx, "com.quiet"))

	f.processor.Process(ctx, event("com.quiet", "promo", ""))
	f.processor.Stop()

	assert.Equal(t, 1, f.sink.count())
	assert.Equal(t, 1, f.blocked.len(), "unmonitored list only gates the allowed log")
}

func TestProcessor_ObserverNotified(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	updates := f.broadcaster.Subscribe()

	f.processor.Process(ctx, event("com.app", "hello", ""))
	f.processor.Stop()

	select {
	case <-updates:
	default:
		t.Fatal("expected a history changed signal")
	}
}

func TestProcessor_ActionRegistered(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	evt := event("com.app", "hello", "")
	evt.Action = "intent://open"
	f.processor.Process(ctx, evt)
	f.processor.Stop()

	action, ok := f.processor.Actions().Get(evt.ID)
	assert.True(t, ok)
	assert.Equal(t, "intent://open", action)
}

func TestProcessor_HitCountFirstMatchPerKindOnly(t *testing.T) {
	ruleSet := []model.Rule{
		denyPromo("com.app.x"),
		denyPromo("com.app.x"), // identical second rule never fires first
	}
	ruleSet[1].TitleFilter = "pro"

	f := newFixture(t, ruleSet)
	ctx := context.Background()

	f.processor.Process(ctx, event("com.app.x", "promo", ""))
	f.processor.Stop()

	stored := f.store.snapshot()
	require.Len(t, stored, 2)
	assert.Equal(t, 1, stored[0].HitCount)
	assert.Zero(t, stored[1].HitCount)
}

func TestProcessor_RunConsumesSource(t *testing.T) {
	f := newFixture(t, []model.Rule{denyPromo("com.app.x")})

	events := []*model.Notification{
		event("com.app.x", "promo a", ""),
		event("com.app.x", "regular b", ""),
	}
	source := &sliceSource{events: events}

	require.NoError(t, f.processor.Run(context.Background(), source))
	f.processor.Stop()

	assert.Equal(t, 1, f.blocked.len())
	assert.Equal(t, 1, f.allowed.len())
}

// sliceSource serves a fixed list of events then EOF.
type sliceSource struct {
	events []*model.Notification
	next   int
}

func (s *sliceSource) Next(_ context.Context) (*model.Notification, error) {
	if s.next >= len(s.events) {
		return nil, io.EOF
	}
	evt := s.events[s.next]
	s.next++
	return evt, nil
}

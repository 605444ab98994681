package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	data  domain.AdminData
	err   error
	calls int
}

func (f *fakeOrders) Data(context.Context) (domain.AdminData, error) {
	f.calls++
	return f.data, f.err
}

type fixture struct {
	mon     *Monitor
	clock   *clockwork.FakeClock
	orders  *fakeOrders
	bus     *bus.Bus
	metrics []domain.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:  clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)),
		orders: &fakeOrders{},
		bus:    bus.New(),
	}
	f.mon = New(f.orders, f.bus, Config{Clock: f.clock})
	f.mon.Subscribe(f.bus)

	f.bus.SubscribeTypes(func(_ context.Context, msg bus.Message) {
		m, ok := msg.Payload.(domain.Metrics)
		require.True(t, ok)
		f.metrics = append(f.metrics, m)
	}, domain.TypeMetricsUpdate)

	return f
}

func (f *fixture) publish(msgType string, payload any) {
	f.bus.Publish(context.Background(), bus.Message{Type: msgType, Payload: payload})
}

func (f *fixture) tick() bool {
	return f.mon.Tick(context.Background())
}

func TestDebounce_BurstCollapsesToOne(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		f.publish(domain.TypeOrderAdd, domain.OrderAddPayload{})
		f.clock.Advance(100 * time.Millisecond)
		assert.False(t, f.tick(), "nothing is processed while the burst continues")
	}

	f.clock.Advance(250 * time.Millisecond)
	assert.True(t, f.tick())

	f.publish(domain.TypeOrderAdd, domain.OrderAddPayload{})
	f.clock.Advance(250 * time.Millisecond)
	assert.True(t, f.tick())

	assert.False(t, f.tick())

	snap := f.mon.Snapshot()
	assert.Equal(t, 2, snap.PeakHours[14], "N events in one window plus one after it are processed twice")
	assert.Len(t, f.metrics, 2)
}

func TestDebounce_LastEventWins(t *testing.T) {
	f := newFixture(t)

	f.publish(domain.TypeOrderAdd, domain.OrderAddPayload{})
	f.publish(domain.TypeMenuUpdate, domain.MenuUpdatePayload{ItemID: 1})

	f.clock.Advance(300 * time.Millisecond)
	require.True(t, f.tick())

	assert.Equal(t, [24]int{}, f.mon.Snapshot().PeakHours, "the superseded orderAdd is never processed")
	assert.Equal(t, 1, f.orders.calls)
}

func TestUserActivity_Immediate(t *testing.T) {
	f := newFixture(t)

	f.publish(domain.TypeUserActivity, domain.UserActivity{Type: domain.ActivityLogin, UserID: "u1"})
	f.publish(domain.TypeUserActivity, domain.UserActivity{Type: domain.ActivityLogin, UserID: "u2"})
	f.publish(domain.TypeUserActivity, domain.UserActivity{Type: domain.ActivityLogin, UserID: "u1"})
	assert.Equal(t, 2, f.mon.Snapshot().ActiveUsers)

	f.publish(domain.TypeUserActivity, domain.UserActivity{Type: domain.ActivityLogout, UserID: "u1"})
	assert.Equal(t, 1, f.mon.Snapshot().ActiveUsers)

	require.True(t, f.tick())
	require.Len(t, f.metrics, 1)
	assert.Equal(t, 1, f.metrics[0].ActiveUsers)
}

func TestUnknownTypesIgnored(t *testing.T) {
	f := newFixture(t)

	f.publish("somethingNew", map[string]any{"x": 1})
	f.publish(domain.TypeUserActivity, "not an activity")
	f.clock.Advance(time.Second)

	assert.False(t, f.tick())
	assert.Empty(t, f.metrics)
}

func TestPageViewThrottle(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.mon.RecordPageView())
	assert.False(t, f.mon.RecordPageView())

	f.clock.Advance(999 * time.Millisecond)
	assert.False(t, f.mon.RecordPageView())

	f.clock.Advance(time.Millisecond)
	assert.True(t, f.mon.RecordPageView())

	assert.Equal(t, int64(2), f.mon.Snapshot().PageViews)
}

func TestErrorRateLimit(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.mon.RecordError("boom"))
	assert.False(t, f.mon.RecordError("again"))

	f.clock.Advance(5 * time.Second)
	assert.False(t, f.mon.RecordError("still cooling down"))

	f.clock.Advance(time.Millisecond)
	assert.True(t, f.mon.RecordError("second"))

	recent := f.mon.Snapshot().RecentErrors
	require.Len(t, recent, 2)
	assert.Equal(t, "boom", recent[0].Message)
	assert.Equal(t, "second", recent[1].Message)
}

func TestErrors_RetentionAndCap(t *testing.T) {
	f := newFixture(t)
	f.mon = New(f.orders, f.bus, Config{Clock: f.clock, MaxErrors: 3, ErrorCooldown: time.Millisecond})

	for i := 0; i < 5; i++ {
		require.True(t, f.mon.RecordError(fmt.Sprintf("e%d", i)))
		f.clock.Advance(10 * time.Millisecond)
	}

	recent := f.mon.Snapshot().RecentErrors
	require.Len(t, recent, 3)
	assert.Equal(t, "e2", recent[0].Message)

	f.clock.Advance(time.Hour)
	f.mon.Tick(context.Background())
	assert.Empty(t, f.mon.Snapshot().RecentErrors)
}

func TestSnapshot_RecentErrorsWindow(t *testing.T) {
	f := newFixture(t)
	f.mon = New(f.orders, f.bus, Config{Clock: f.clock, ErrorCooldown: time.Millisecond})

	for i := 0; i < 8; i++ {
		require.True(t, f.mon.RecordError(fmt.Sprintf("e%d", i)))
		f.clock.Advance(2 * time.Millisecond)
	}

	recent := f.mon.Snapshot().RecentErrors
	require.Len(t, recent, 5)
	assert.Equal(t, "e3", recent[0].Message)
	assert.Equal(t, "e7", recent[4].Message)
}

func TestTick_BatchesIntoOneBroadcast(t *testing.T) {
	f := newFixture(t)

	f.mon.RecordPageView()
	f.mon.RecordError("x")
	f.publish(domain.TypeUserActivity, domain.UserActivity{Type: domain.ActivityLogin, UserID: "u1"})
	f.publish(domain.TypeMenuAdd, domain.MenuAddPayload{})
	f.clock.Advance(250 * time.Millisecond)

	require.True(t, f.tick())
	require.Len(t, f.metrics, 1)

	m := f.metrics[0]
	assert.Equal(t, int64(1), m.PageViews)
	assert.Equal(t, 1, m.ActiveUsers)
	assert.Len(t, m.RecentErrors, 1)
	assert.Equal(t, f.clock.Now(), m.UpdatedAt)

	assert.False(t, f.tick())
	assert.Len(t, f.metrics, 1)
}

func TestPopularItems_TopN(t *testing.T) {
	f := newFixture(t)
	f.mon = New(f.orders, f.bus, Config{Clock: f.clock, TopItems: 2})

	f.orders.data = domain.AdminData{Orders: []domain.Order{
		{ID: 1, Items: []domain.OrderItem{{Name: "Latte"}, {Name: "Croissant"}}},
		{ID: 2, Items: []domain.OrderItem{{Name: "Latte"}, {Name: "Tea"}}},
		{ID: 3, Items: []domain.OrderItem{{Name: "Latte"}, {Name: "Croissant"}}},
		{ID: 4},
	}}

	f.mon.HandleUpdate(context.Background(), bus.Message{Type: domain.TypeDataUpdate})
	f.clock.Advance(250 * time.Millisecond)
	require.True(t, f.mon.Tick(context.Background()))

	assert.Equal(t, []domain.ItemCount{
		{Name: "Latte", Count: 3},
		{Name: "Croissant", Count: 2},
	}, f.mon.Snapshot().PopularItems)
}

func TestPopularItems_LoadFailureKeepsPrevious(t *testing.T) {
	f := newFixture(t)
	f.orders.data = domain.AdminData{Orders: []domain.Order{{Items: []domain.OrderItem{{Name: "Mocha"}}}}}

	f.publish(domain.TypeMenuAdd, nil)
	f.clock.Advance(250 * time.Millisecond)
	require.True(t, f.tick())

	f.orders.err = errors.New("backend down")
	f.publish(domain.TypeMenuRemove, nil)
	f.clock.Advance(250 * time.Millisecond)
	require.True(t, f.tick())

	assert.Equal(t, []domain.ItemCount{{Name: "Mocha", Count: 1}}, f.mon.Snapshot().PopularItems)
}

func TestRun_TicksOnFrame(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.mon.Run(ctx) }()

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.mon.RecordPageView()
	f.clock.Advance(16 * time.Millisecond)

	require.Eventually(t, func() bool {
		return f.mon.Snapshot().UpdatedAt.Equal(f.clock.Now())
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

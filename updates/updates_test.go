package updates_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpond/realtime/bus"
	"github.com/taskpond/realtime/codec"
	"github.com/taskpond/realtime/conn"
	"github.com/taskpond/realtime/identity"
	"github.com/taskpond/realtime/logger"
	"github.com/taskpond/realtime/sched"
	"github.com/taskpond/realtime/updates"
)

// ----------------------------------------------------
// Fakes
// ----------------------------------------------------

type fakeManager struct {
	mu       sync.Mutex
	connects []string
	sent     []*codec.Message
	subs     []conn.Subscription
	unsubs   []conn.Subscription
}

var _ conn.IManager = (*fakeManager)(nil)

func (m *fakeManager) Connect(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects = append(m.connects, identity)
}

func (m *fakeManager) Disconnect() {}

func (m *fakeManager) Send(msg *codec.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

func (m *fakeManager) Subscribe(sub conn.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, sub)
}

func (m *fakeManager) Unsubscribe(sub conn.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubs = append(m.unsubs, sub)
}

func (m *fakeManager) State() conn.State                  { return conn.StateIdle }
func (m *fakeManager) Subscriptions() []conn.Subscription { return nil }

func (m *fakeManager) unsubCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.unsubs)
}

type fakeAPI struct {
	mu       sync.Mutex
	sendErr  error
	listErr  error
	thread   []updates.ChatMessage
	sends    int
	lists    int
	lastJob  string
	lastPeer string
}

func (a *fakeAPI) Send(_ context.Context, jobID, recipientID, content string) (*updates.ChatMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sends++
	if a.sendErr != nil {
		return nil, a.sendErr
	}
	return &updates.ChatMessage{
		ID:          "m-new",
		JobID:       jobID,
		RecipientID: recipientID,
		Content:     content,
		CreatedAt:   time.Now(),
	}, nil
}

func (a *fakeAPI) List(_ context.Context, jobID, recipientID string) ([]updates.ChatMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lists++
	a.lastJob, a.lastPeer = jobID, recipientID
	if a.listErr != nil {
		return nil, a.listErr
	}
	return a.thread, nil
}

type fixture struct {
	mgr   *fakeManager
	bus   *bus.Bus
	api   *fakeAPI
	sched *sched.Fake
	u     *updates.Updates
}

func newFixture(t *testing.T, opts updates.Options) *fixture {
	t.Helper()
	f := &fixture{
		mgr:   &fakeManager{},
		bus:   bus.New(),
		api:   &fakeAPI{},
		sched: sched.NewFake(),
	}
	if opts.Sender == nil {
		opts.Sender = f.api
	}
	if opts.Lister == nil {
		opts.Lister = f.api
	}
	opts.Scheduler = f.sched
	opts.Logger = logger.Nop()
	f.u = updates.New(f.mgr, f.bus, opts)
	t.Cleanup(f.u.Close)
	return f
}

// ----------------------------------------------------
// Subscription helpers
// ----------------------------------------------------

func TestOnJobUpdatesDeliversAndTearsDownOnce(t *testing.T) {
	f := newFixture(t, updates.Options{})

	var got []any
	off := f.u.OnJobUpdates("j1", func(p any) { got = append(got, p) })

	require.Equal(t, []conn.Subscription{conn.JobSubscription("j1")}, f.mgr.subs)

	f.bus.Publish(conn.EventJobUpdate, "u1")
	assert.Equal(t, []any{"u1"}, got)

	off()
	off()
	off()
	assert.Equal(t, 1, f.mgr.unsubCount(), "repeated teardown must cancel once")
	assert.Equal(t, []conn.Subscription{conn.JobSubscription("j1")}, f.mgr.unsubs)

	f.bus.Publish(conn.EventJobUpdate, "u2")
	assert.Equal(t, []any{"u1"}, got, "callback must be gone after teardown")
}

func TestOnPaymentUpdatesFansInThreeEvents(t *testing.T) {
	f := newFixture(t, updates.Options{})

	var got []any
	off := f.u.OnPaymentUpdates("u1", func(p any) { got = append(got, p) })

	require.Equal(t, []conn.Subscription{conn.PaymentSubscription("u1")}, f.mgr.subs)

	f.bus.Publish(conn.EventPaymentUpdate, "a")
	f.bus.Publish(conn.EventEscrowReleased, "b")
	f.bus.Publish(conn.EventTransactionUpdate, "c")
	assert.Equal(t, []any{"a", "b", "c"}, got)

	off()
	off()
	assert.Equal(t, 1, f.mgr.unsubCount())

	f.bus.Publish(conn.EventEscrowReleased, "d")
	assert.Equal(t, []any{"a", "b", "c"}, got)
}

// ----------------------------------------------------
// Messaging
// ----------------------------------------------------

func TestSendMessagePersistsThenPushes(t *testing.T) {
	f := newFixture(t, updates.Options{})

	err := f.u.SendMessage(context.Background(), "j1", "u2", "hello")
	require.NoError(t, err)
	require.Len(t, f.mgr.sent, 1)
	assert.Equal(t, codec.TypeNewMessage, f.mgr.sent[0].GetType())

	raw, ok := f.mgr.sent[0].Get("message")
	require.True(t, ok)
	nested, ok := raw.(*updates.ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "hello", nested.Content)
	assert.Equal(t, "j1", nested.JobID)
}

func TestSendMessageFailureSkipsRealtimePush(t *testing.T) {
	f := newFixture(t, updates.Options{})
	f.api.sendErr = errors.New("api down")

	err := f.u.SendMessage(context.Background(), "j1", "u2", "hello")
	require.Error(t, err)
	assert.Empty(t, f.mgr.sent)
}

// ----------------------------------------------------
// Polling fallback
// ----------------------------------------------------

func TestPollingPublishesOnlyNewestMessage(t *testing.T) {
	f := newFixture(t, updates.Options{})
	f.api.thread = []updates.ChatMessage{
		{ID: "m1"}, {ID: "m2"}, {ID: "m3"},
	}

	var got []any
	f.bus.Subscribe(conn.EventNewMessage, func(p any) { got = append(got, p) })

	f.u.StartMessagePolling("j1", "u2")
	require.Len(t, f.sched.Pending(), 1)
	assert.Equal(t, 5*time.Second, f.sched.Pending()[0].Delay)

	require.True(t, f.sched.Fire())
	require.Len(t, got, 1, "a full thread must surface as a single event")
	assert.Equal(t, "m3", got[0].(updates.ChatMessage).ID)
	assert.Equal(t, "j1", f.api.lastJob)
	assert.Equal(t, "u2", f.api.lastPeer)
	assert.Len(t, f.sched.Pending(), 1, "loop must re-arm after each round")
}

func TestPollingEmptyThreadPublishesNothing(t *testing.T) {
	f := newFixture(t, updates.Options{})

	var got []any
	f.bus.Subscribe(conn.EventNewMessage, func(p any) { got = append(got, p) })

	f.u.StartMessagePolling("j1", "u2")
	require.True(t, f.sched.Fire())
	assert.Empty(t, got)
}

func TestPollingSurvivesFetchFailure(t *testing.T) {
	f := newFixture(t, updates.Options{})
	f.api.listErr = errors.New("network")

	f.u.StartMessagePolling("j1", "u2")
	require.True(t, f.sched.Fire())
	assert.Len(t, f.sched.Pending(), 1, "a failed round must not kill the loop")

	f.api.listErr = nil
	f.api.thread = []updates.ChatMessage{{ID: "m1"}}
	var got []any
	f.bus.Subscribe(conn.EventNewMessage, func(p any) { got = append(got, p) })
	require.True(t, f.sched.Fire())
	assert.Len(t, got, 1)
}

func TestPollingSamePairIsNoop(t *testing.T) {
	f := newFixture(t, updates.Options{})

	f.u.StartMessagePolling("j1", "u2")
	f.u.StartMessagePolling("j1", "u2")
	assert.Len(t, f.sched.Pending(), 1)
}

func TestPollingNewPairReplacesOldLoop(t *testing.T) {
	f := newFixture(t, updates.Options{})
	f.api.thread = []updates.ChatMessage{{ID: "m1"}}

	f.u.StartMessagePolling("j1", "u2")
	f.u.StartMessagePolling("j2", "u3")
	require.Len(t, f.sched.Pending(), 1, "at most one polling timer per facade")

	require.True(t, f.sched.Fire())
	assert.Equal(t, "j2", f.api.lastJob)
	assert.Equal(t, "u3", f.api.lastPeer)
}

func TestStopPollingCancelsTimer(t *testing.T) {
	f := newFixture(t, updates.Options{})

	f.u.StartMessagePolling("j1", "u2")
	f.u.StopMessagePolling()
	assert.Empty(t, f.sched.Pending())
	assert.False(t, f.sched.Fire())

	// Idempotent.
	f.u.StopMessagePolling()
}

// ----------------------------------------------------
// Identity binding
// ----------------------------------------------------

func TestIdentityDrivesConnect(t *testing.T) {
	ids := identity.Static("u1")
	f := newFixture(t, updates.Options{Identity: ids})

	assert.Equal(t, []string{"u1"}, f.mgr.connects)

	ids.Set("u2")
	assert.Equal(t, []string{"u1", "u2"}, f.mgr.connects)
}

func TestIdentityLossReleasesSessionState(t *testing.T) {
	ids := identity.Static("u1")
	f := newFixture(t, updates.Options{Identity: ids})

	var got []any
	f.u.OnJobUpdates("j1", func(p any) { got = append(got, p) })
	f.u.StartMessagePolling("j1", "u2")

	ids.Clear()
	assert.Empty(t, f.sched.Pending(), "sign-out must stop polling")

	f.bus.Publish(conn.EventJobUpdate, "u1")
	assert.Empty(t, got, "sign-out must drop session handlers")
}

// ----------------------------------------------------
// Connectivity flag and teardown
// ----------------------------------------------------

func TestConnectedTracksBusEvents(t *testing.T) {
	f := newFixture(t, updates.Options{})

	assert.False(t, f.u.Connected())
	f.bus.Publish(conn.EventConnected, nil)
	assert.True(t, f.u.Connected())
	f.bus.Publish(conn.EventDisconnected, nil)
	assert.False(t, f.u.Connected())
}

func TestCloseReleasesLocalStateOnly(t *testing.T) {
	f := newFixture(t, updates.Options{})

	var got []any
	f.u.OnJobUpdates("j1", func(p any) { got = append(got, p) })
	f.u.StartMessagePolling("j1", "u2")
	before := f.bus.SubscriberCount(conn.EventJobUpdate)
	require.Equal(t, 1, before)

	f.u.Close()
	f.u.Close()

	assert.Zero(t, f.bus.SubscriberCount(conn.EventJobUpdate))
	assert.Zero(t, f.bus.SubscriberCount(conn.EventConnected))
	assert.Empty(t, f.sched.Pending())

	f.bus.Publish(conn.EventJobUpdate, "u1")
	assert.Empty(t, got)
}

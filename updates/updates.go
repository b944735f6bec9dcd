// Package updates is the consumer-facing facade over the realtime layer:
// typed subscription helpers, message sending with realtime fan-out, a
// connectivity flag and a polling fallback for chat messages.
package updates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taskpond/realtime/bus"
	"github.com/taskpond/realtime/codec"
	"github.com/taskpond/realtime/config"
	"github.com/taskpond/realtime/conn"
	"github.com/taskpond/realtime/identity"
	"github.com/taskpond/realtime/logger"
	"github.com/taskpond/realtime/sched"
)

// ----------------------------------------------------
// Options
// ----------------------------------------------------

// Options carries the facade's collaborators. Sender and Lister are the
// messaging API client; Identity drives connect/release automatically.
type Options struct {
	Sender       ISender
	Lister       ILister
	Identity     identity.IProvider
	Scheduler    sched.IScheduler
	Logger       logger.ILogger
	PollInterval time.Duration
}

// ----------------------------------------------------
// Updates facade
// ----------------------------------------------------

// Updates is an identity-bound view over the shared connection manager and
// bus. A facade owns its own bus registrations and polling timer, nothing
// else: Close never tears down the shared connection.
type Updates struct {
	mgr    conn.IManager
	bus    bus.IBus
	sender ISender
	lister ILister
	sched  sched.IScheduler
	log    logger.ILogger
	every  time.Duration

	mu sync.Mutex
	// lifetime registrations live until Close: connectivity tracking and the
	// identity watcher. session registrations are released on identity loss
	// as well, so a signed-out user leaks no handlers.
	lifetime  []func()
	session   []func()
	poll      *pollState
	connected bool
	closed    bool
}

type pollState struct {
	jobID       string
	recipientID string
	timer       sched.ITimer
	stopped     bool
}

// New builds a facade over the shared manager and bus. If Options.Identity
// already holds an identity, the manager is asked to connect immediately.
func New(mgr conn.IManager, b bus.IBus, opts Options) *Updates {
	if opts.Scheduler == nil {
		opts.Scheduler = sched.Wall()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}

	u := &Updates{
		mgr:    mgr,
		bus:    b,
		sender: opts.Sender,
		lister: opts.Lister,
		sched:  opts.Scheduler,
		log:    opts.Logger,
		every:  opts.PollInterval,
	}

	u.lifetime = append(u.lifetime,
		b.Subscribe(conn.EventConnected, func(any) { u.setConnected(true) }),
		b.Subscribe(conn.EventDisconnected, func(any) { u.setConnected(false) }),
	)

	if opts.Identity != nil {
		u.lifetime = append(u.lifetime, opts.Identity.OnChange(u.onIdentity))
		if id, ok := opts.Identity.Identity(); ok {
			mgr.Connect(id)
		}
	}
	return u
}

// Connected reports whether the realtime channel is currently usable.
func (u *Updates) Connected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.connected
}

func (u *Updates) setConnected(v bool) {
	u.mu.Lock()
	u.connected = v
	u.mu.Unlock()
}

func (u *Updates) onIdentity(id string, ok bool) {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	if ok {
		u.mu.Unlock()
		u.mgr.Connect(id)
		return
	}
	session := u.session
	u.session = nil
	u.stopPollLocked()
	u.mu.Unlock()
	for _, cancel := range session {
		cancel()
	}
}

// ----------------------------------------------------
// Typed subscription helpers
// ----------------------------------------------------

// OnJobUpdates subscribes to realtime updates for one job and invokes fn for
// each one. The returned teardown is idempotent: calling it more than once
// sends exactly one cancellation to the server.
func (u *Updates) OnJobUpdates(jobID string, fn bus.Handler) func() {
	sub := conn.JobSubscription(jobID)
	u.mgr.Subscribe(sub)
	cancelEvt := u.register(conn.EventJobUpdate, fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			u.mgr.Unsubscribe(sub)
			cancelEvt()
		})
	}
}

// OnPaymentUpdates subscribes to the user's payment stream. One callback
// receives plain payment updates, escrow releases and transaction updates.
func (u *Updates) OnPaymentUpdates(userID string, fn bus.Handler) func() {
	sub := conn.PaymentSubscription(userID)
	u.mgr.Subscribe(sub)
	cancels := []func(){
		u.register(conn.EventPaymentUpdate, fn),
		u.register(conn.EventEscrowReleased, fn),
		u.register(conn.EventTransactionUpdate, fn),
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			u.mgr.Unsubscribe(sub)
			for _, cancel := range cancels {
				cancel()
			}
		})
	}
}

func (u *Updates) register(name string, fn bus.Handler) func() {
	cancel := u.bus.Subscribe(name, fn)
	u.mu.Lock()
	u.session = append(u.session, cancel)
	u.mu.Unlock()
	return cancel
}

// ----------------------------------------------------
// Messaging
// ----------------------------------------------------

// SendMessage persists the message through the API client and, on success,
// pushes it over the realtime channel so the recipient sees it immediately.
// Persistence failure is fatal; the realtime push is best-effort.
func (u *Updates) SendMessage(ctx context.Context, jobID, recipientID, content string) error {
	msg, err := u.sender.Send(ctx, jobID, recipientID, content)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	u.mgr.Send(codec.NewChatMessage(msg))
	return nil
}

// ----------------------------------------------------
// Polling fallback
// ----------------------------------------------------

// StartMessagePolling polls the conversation for the given pair and publishes
// only the newest message each round, so realtime consumers never replay the
// whole thread. Starting for the same pair again is a no-op; a different pair
// replaces the previous polling loop. A facade runs at most one loop.
func (u *Updates) StartMessagePolling(jobID, recipientID string) {
	u.mu.Lock()
	if u.closed || u.lister == nil {
		u.mu.Unlock()
		return
	}
	if p := u.poll; p != nil {
		if p.jobID == jobID && p.recipientID == recipientID {
			u.mu.Unlock()
			return
		}
		u.stopPollLocked()
	}
	p := &pollState{jobID: jobID, recipientID: recipientID}
	u.poll = p
	u.mu.Unlock()
	u.arm(p)
}

// StopMessagePolling stops the polling loop, if any. Idempotent.
func (u *Updates) StopMessagePolling() {
	u.mu.Lock()
	u.stopPollLocked()
	u.mu.Unlock()
}

func (u *Updates) stopPollLocked() {
	if u.poll == nil {
		return
	}
	u.poll.stopped = true
	if u.poll.timer != nil {
		u.poll.timer.Stop()
	}
	u.poll = nil
}

func (u *Updates) arm(p *pollState) {
	timer := u.sched.AfterFunc(u.every, func() { u.tick(p) })
	u.mu.Lock()
	if u.poll == p && !p.stopped {
		p.timer = timer
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()
	timer.Stop()
}

func (u *Updates) tick(p *pollState) {
	if !u.polling(p) {
		return
	}
	// Re-arm before fetching so a slow fetch never drifts the period.
	u.arm(p)

	msgs, err := u.lister.List(context.Background(), p.jobID, p.recipientID)
	if err != nil {
		u.log.Warn("message poll failed: %v", err)
		return
	}
	if len(msgs) == 0 || !u.polling(p) {
		return
	}
	u.bus.Publish(conn.EventNewMessage, msgs[len(msgs)-1])
}

func (u *Updates) polling(p *pollState) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.poll == p && !p.stopped
}

// ----------------------------------------------------
// Teardown
// ----------------------------------------------------

// Close releases every bus registration and timer owned by this facade. The
// shared connection manager is left untouched: other facades may still be
// using it.
func (u *Updates) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	session := u.session
	lifetime := u.lifetime
	u.session = nil
	u.lifetime = nil
	u.stopPollLocked()
	u.mu.Unlock()

	for _, cancel := range session {
		cancel()
	}
	for _, cancel := range lifetime {
		cancel()
	}
}

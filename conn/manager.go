// Package conn owns the single logical connection to the marketplace server:
// lifecycle (connect, authenticate, reconnect with backoff, disconnect),
// buffering of outbound messages while disconnected, subscription replay
// after every reconnect, and republication of inbound events on the bus.
package conn

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"github.com/taskpond/realtime/bus"
	"github.com/taskpond/realtime/codec"
	"github.com/taskpond/realtime/config"
	"github.com/taskpond/realtime/logger"
	recoverpkg "github.com/taskpond/realtime/recover"
	"github.com/taskpond/realtime/sched"
	"github.com/taskpond/realtime/transport"
)

var _ IManager = (*Manager)(nil)

// IManager is the connection manager contract consumed by facades.
type IManager interface {
	Connect(identity string)
	Disconnect()
	Send(msg *codec.Message)
	Subscribe(sub Subscription)
	Unsubscribe(sub Subscription)
	State() State
	Subscriptions() []Subscription
}

// Manager maintains exactly one logical channel to the server. It is intended
// to be process-wide and shared by any number of facade instances.
type Manager struct {
	cfg    *config.Config
	dialer transport.IDialer
	bus    bus.IBus
	sched  sched.IScheduler
	log    logger.ILogger

	mu       sync.Mutex
	state    State
	identity string
	channel  transport.IChannel
	queue    []*codec.Message
	subs     []Subscription
	subSet   map[Subscription]struct{}
	attempts int
	retries  *backoff.ExponentialBackOff
	retry    sched.ITimer
	// epoch invalidates callbacks from channels and timers that predate the
	// last hard reset.
	epoch uint64
}

// NewManager creates a manager over the given transport, bus and scheduler.
func NewManager(cfg *config.Config, dialer transport.IDialer, b bus.IBus, sch sched.IScheduler, log logger.ILogger) *Manager {
	retries := backoff.NewExponentialBackOff()
	retries.InitialInterval = cfg.ReconnectBase
	retries.RandomizationFactor = 0
	retries.Multiplier = 2
	if cfg.ReconnectMax > 0 {
		retries.MaxInterval = cfg.ReconnectBase << (cfg.ReconnectMax - 1)
	}
	retries.Reset()

	return &Manager{
		cfg:     cfg,
		dialer:  dialer,
		bus:     b,
		sched:   sch,
		log:     log,
		subSet:  make(map[Subscription]struct{}),
		retries: retries,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscriptions returns a snapshot of the subscription set in registration
// order.
func (m *Manager) Subscriptions() []Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Subscription(nil), m.subs...)
}

// ----------------------------------------------------
// Lifecycle
// ----------------------------------------------------

// Connect opens the channel for the given identity. No-op while already
// connecting or open. The dial is asynchronous: outcomes arrive via the
// transport callbacks.
func (m *Manager) Connect(identity string) {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return
	}
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.identity = identity
	m.state = StateConnecting
	epoch := m.epoch
	addr := m.cfg.WSAddress()
	m.mu.Unlock()

	m.log.Debug("opening channel to %s", addr)
	go recoverpkg.Safe("conn.dial", func() { m.dial(epoch, addr) })
}

func (m *Manager) dial(epoch uint64, addr string) {
	ch, err := m.dialer.Dial(context.Background(), addr, transport.Handlers{
		OnMessage: func(data []byte) { m.handleMessage(epoch, data) },
		OnClose:   func(err error) { m.handleClose(epoch, err) },
	})
	if err != nil {
		// A transport error only clears the connecting mark; the close path
		// owns recovery, so one failure never counts as two transitions.
		m.log.Error("channel open failed: %v", err)
		m.handleClose(epoch, err)
		return
	}
	m.handleOpen(epoch, ch)
}

func (m *Manager) handleOpen(epoch uint64, ch transport.IChannel) {
	m.mu.Lock()
	if epoch != m.epoch || m.state != StateConnecting {
		m.mu.Unlock()
		_ = ch.Close()
		return
	}
	m.state = StateOpen
	m.channel = ch
	m.attempts = 0
	m.retries.Reset()
	identity := m.identity
	queue := m.queue
	m.queue = nil
	subs := append([]Subscription(nil), m.subs...)
	m.mu.Unlock()

	if identity != "" {
		m.transmit(ch, codec.NewAuth(identity))
	}
	for _, msg := range queue {
		m.transmit(ch, msg)
	}
	for _, sub := range subs {
		m.transmit(ch, sub.Message())
	}
	m.log.Info("channel open")
	m.bus.Publish(EventConnected, nil)
}

func (m *Manager) handleClose(epoch uint64, cause error) {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		return
	}
	m.channel = nil
	if m.attempts >= m.cfg.ReconnectMax {
		m.state = StateGone
		m.mu.Unlock()
		m.log.Error("reconnect attempts exhausted, giving up (cause: %v)", cause)
		m.bus.Publish(EventDisconnected, nil)
		return
	}
	m.attempts++
	attempt := m.attempts
	delay := m.retries.NextBackOff()
	m.state = StateRetryWait
	identity := m.identity
	m.mu.Unlock()

	m.log.Warn("channel closed (%v), retry %d/%d in %s", cause, attempt, m.cfg.ReconnectMax, delay)

	timer := m.sched.AfterFunc(delay, func() { m.reconnect(epoch, identity) })
	m.mu.Lock()
	if epoch == m.epoch && m.state == StateRetryWait {
		m.retry = timer
	} else {
		timer.Stop()
	}
	m.mu.Unlock()
}

func (m *Manager) reconnect(epoch uint64, identity string) {
	m.mu.Lock()
	stale := epoch != m.epoch
	m.mu.Unlock()
	if stale {
		return
	}
	m.Connect(identity)
}

// Disconnect is a hard reset: close the channel, clear the subscription set,
// the outbound queue and the reconnect counter, and go back to idle. No
// events carry over, and the close this causes schedules no retry.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.epoch++
	ch := m.channel
	m.channel = nil
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.subs = nil
	m.subSet = make(map[Subscription]struct{})
	m.queue = nil
	m.attempts = 0
	m.retries.Reset()
	m.identity = ""
	m.state = StateIdle
	m.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	m.log.Info("channel disconnected")
}

// ----------------------------------------------------
// Outbound
// ----------------------------------------------------

// Send transmits the message immediately when open; otherwise appends it to
// the outbound queue, to be drained in order on the next successful connect.
func (m *Manager) Send(msg *codec.Message) {
	m.mu.Lock()
	if m.state == StateOpen && m.channel != nil {
		ch := m.channel
		m.mu.Unlock()
		m.transmit(ch, msg)
		return
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()
}

// Subscribe adds the subscription to the set (deduplicated by value) and
// registers it with the server right away when the channel is open. While
// closed the set alone suffices: replay covers it on the next connect.
func (m *Manager) Subscribe(sub Subscription) {
	m.mu.Lock()
	if _, ok := m.subSet[sub]; !ok {
		m.subSet[sub] = struct{}{}
		m.subs = append(m.subs, sub)
	}
	open := m.state == StateOpen && m.channel != nil
	ch := m.channel
	m.mu.Unlock()

	if open {
		m.transmit(ch, sub.Message())
	}
}

// Unsubscribe removes the subscription from the set and sends the
// cancellation frame regardless of connection state (queued while closed).
func (m *Manager) Unsubscribe(sub Subscription) {
	m.mu.Lock()
	if _, ok := m.subSet[sub]; ok {
		delete(m.subSet, sub)
		for i, s := range m.subs {
			if s == sub {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	m.Send(sub.Cancel())
}

func (m *Manager) transmit(ch transport.IChannel, msg *codec.Message) {
	data, err := msg.Encode()
	if err != nil {
		m.log.Error("encode %s frame: %v", msg.GetType(), err)
		return
	}
	if err := ch.Send(data); err != nil {
		// The read loop surfaces the close; recovery happens there.
		m.log.Error("send %s frame: %v", msg.GetType(), err)
	}
}

// ----------------------------------------------------
// Inbound
// ----------------------------------------------------

// Derived canonical events per known inbound type tag. Everything else is
// republished only under its raw tag.
func (m *Manager) handleMessage(epoch uint64, data []byte) {
	m.mu.Lock()
	stale := epoch != m.epoch
	m.mu.Unlock()
	if stale {
		return
	}

	msg, err := codec.Decode(data)
	if err != nil {
		m.log.Warn("dropping malformed inbound frame: %v", err)
		return
	}

	m.bus.Publish(msg.GetType(), msg)

	switch msg.GetType() {
	case codec.TypeJobUpdated:
		m.bus.Publish(EventJobUpdate, msg)
	case codec.TypeNewMessage:
		nested, _ := msg.Get("message")
		m.bus.Publish(EventNewMessage, nested)
	case codec.TypePaymentUpdated:
		m.bus.Publish(EventPaymentUpdate, msg)
	case codec.TypeEscrowReleased:
		m.bus.Publish(EventEscrowReleased, msg)
	case codec.TypeTransactionUpdated:
		m.bus.Publish(EventTransactionUpdate, msg)
	}
}

// Package identity supplies the current authenticated identity to the update
// facade and notifies it of session changes. How the identity is obtained
// (login flow, stored token) is the host application's concern.
package identity

import "sync"

var _ IProvider = (*Provider)(nil)

// IProvider exposes the current identity, or its absence, with change
// notifications.
type IProvider interface {
	// Identity returns the current user id and whether one is present.
	Identity() (string, bool)
	// OnChange registers a callback for identity changes and returns a
	// cancel capability. The callback is not invoked for the current value.
	OnChange(fn func(id string, ok bool)) (cancel func())
}

// Provider is a mutable in-memory identity holder.
type Provider struct {
	mu       sync.Mutex
	id       string
	seq      uint64
	watchers map[uint64]func(id string, ok bool)
}

// Static creates a provider fixed to the given user id. An empty id means no
// identity is present yet.
func Static(userID string) *Provider {
	return &Provider{
		id:       userID,
		watchers: make(map[uint64]func(string, bool)),
	}
}

// Identity returns the current user id and whether one is present.
func (p *Provider) Identity() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id, p.id != ""
}

// Set installs a new identity and notifies watchers.
func (p *Provider) Set(userID string) {
	p.change(userID)
}

// Clear drops the identity (session end) and notifies watchers.
func (p *Provider) Clear() {
	p.change("")
}

func (p *Provider) change(userID string) {
	p.mu.Lock()
	if p.id == userID {
		p.mu.Unlock()
		return
	}
	p.id = userID
	fns := make([]func(string, bool), 0, len(p.watchers))
	for _, fn := range p.watchers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(userID, userID != "")
	}
}

// OnChange registers a watcher; the returned cancel is idempotent.
func (p *Provider) OnChange(fn func(id string, ok bool)) func() {
	p.mu.Lock()
	p.seq++
	id := p.seq
	p.watchers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}
}

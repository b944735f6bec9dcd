// Package transport abstracts the live channel so the connection manager is
// agnostic of the underlying WebSocket implementation and can be tested with
// an in-memory fake.
package transport

import (
	"context"
	"errors"
)

// ErrChannelClosed is returned when sending on a closed channel.
var ErrChannelClosed = errors.New("transport: channel closed")

// Handlers carries the callbacks a dialed channel reports into.
type Handlers struct {
	// OnMessage is invoked for every inbound frame.
	OnMessage func(data []byte)
	// OnClose is invoked exactly once when the channel dies, with the
	// terminal error (nil for a clean close).
	OnClose func(err error)
}

// IChannel is an open live channel.
type IChannel interface {
	Send(data []byte) error
	Close() error
}

// IDialer opens live channels. Dial blocks until the channel is open or the
// attempt failed; inbound frames and the eventual close arrive via Handlers.
type IDialer interface {
	Dial(ctx context.Context, url string, h Handlers) (IChannel, error)
}

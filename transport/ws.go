package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taskpond/realtime/logger"
)

var _ IDialer = (*WSDialer)(nil)
var _ IChannel = (*wsChannel)(nil)

const writeTimeout = 10 * time.Second

// WSDialer dials WebSocket live channels.
type WSDialer struct {
	dialer *websocket.Dialer
	log    logger.ILogger
}

// NewWSDialer creates a dialer with gorilla defaults.
func NewWSDialer(log logger.ILogger) *WSDialer {
	return &WSDialer{
		dialer: websocket.DefaultDialer,
		log:    log,
	}
}

// Dial opens a WebSocket connection and starts the read loop.
func (d *WSDialer) Dial(ctx context.Context, url string, h Handlers) (IChannel, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	ch := &wsChannel{conn: conn, log: d.log}
	go ch.listen(h)
	return ch, nil
}

// wsChannel wraps a gorilla connection behind the IChannel contract.
type wsChannel struct {
	conn *websocket.Conn
	log  logger.ILogger

	mu     sync.Mutex
	closed bool
}

// Send transmits a single text frame.
func (c *wsChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close shuts the connection down. The read loop reports the close through
// Handlers.OnClose as usual.
func (c *wsChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()
	return c.conn.Close()
}

// listen reads inbound frames until the connection dies.
func (c *wsChannel) listen(h Handlers) {
	defer c.conn.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if h.OnClose != nil {
				h.OnClose(err)
			}
			return
		}
		if h.OnMessage != nil {
			h.OnMessage(data)
		}
	}
}

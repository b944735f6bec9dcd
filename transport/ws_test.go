package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taskpond/realtime/logger"
	"github.com/taskpond/realtime/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer upgrades and echoes every text frame back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialSendReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	inbound := make(chan []byte, 1)
	closed := make(chan error, 1)
	ch, err := transport.NewWSDialer(logger.Nop()).Dial(context.Background(), wsURL(srv), transport.Handlers{
		OnMessage: func(data []byte) { inbound <- data },
		OnClose:   func(err error) { closed <- err },
	})
	require.NoError(t, err)

	require.NoError(t, ch.Send([]byte(`{"type":"ping"}`)))
	select {
	case data := <-inbound:
		assert.JSONEq(t, `{"type":"ping"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no echo received")
	}

	require.NoError(t, ch.Close())
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close never reported")
	}

	assert.ErrorIs(t, ch.Send([]byte("x")), transport.ErrChannelClosed)
}

func TestDialFailure(t *testing.T) {
	_, err := transport.NewWSDialer(logger.Nop()).
		Dial(context.Background(), "ws://127.0.0.1:1/ws", transport.Handlers{})
	assert.Error(t, err)
}

func TestServerInitiatedClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	closed := make(chan error, 1)
	_, err := transport.NewWSDialer(logger.Nop()).Dial(context.Background(), wsURL(srv), transport.Handlers{
		OnClose: func(err error) { closed <- err },
	})
	require.NoError(t, err)

	select {
	case err := <-closed:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server close never reported")
	}
}

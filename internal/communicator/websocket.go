package communicator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebsocketDialer opens gorilla/websocket sessions. With a PingInterval set, the
// session pings the server and fails the read side if pongs stop arriving.
type WebsocketDialer struct {
	Dialer       *websocket.Dialer
	PingInterval time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}

	if d.PingInterval <= 0 {
		return conn, nil
	}
	return newKeepaliveConn(conn, d.PingInterval), nil
}

type keepaliveConn struct {
	*websocket.Conn
	wait time.Duration
	done chan struct{}
	once sync.Once
}

func newKeepaliveConn(conn *websocket.Conn, interval time.Duration) *keepaliveConn {
	k := &keepaliveConn{
		Conn: conn,
		wait: 2 * interval,
		done: make(chan struct{}),
	}
	k.extend()
	conn.SetPongHandler(func(string) error {
		k.extend()
		return nil
	})
	go k.ping(interval)
	return k
}

func (k *keepaliveConn) extend() {
	if err := k.Conn.SetReadDeadline(time.Now().Add(k.wait)); err != nil {
		log.Debug().Err(err).Msg("Failed to extend read deadline")
	}
}

func (k *keepaliveConn) ReadMessage() (int, []byte, error) {
	mt, data, err := k.Conn.ReadMessage()
	if err == nil {
		k.extend()
	}
	return mt, data, err
}

func (k *keepaliveConn) ping(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-k.done:
			return
		case <-ticker.C:
			// WriteControl may run concurrently with WriteMessage
			if err := k.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
				log.Debug().Err(err).Msg("Keepalive ping failed")
				return
			}
		}
	}
}

func (k *keepaliveConn) Close() error {
	k.once.Do(func() { close(k.done) })
	return k.Conn.Close()
}

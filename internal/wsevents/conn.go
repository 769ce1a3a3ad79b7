// Package wsevents streams receiver events (session transitions, volume
// and track-metadata changes, multi-room drift corrections) to
// subscribed clients over WebSocket, for UIs that want to follow a
// receiver live rather than poll the status API.
package wsevents

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var (
	pingInterval = 30 * time.Second
	pingTimeout  = 5 * time.Second
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Conn is a server-side WebSocket connection with automatic, periodic
// ping-pong and a serialized write path.
type Conn struct {
	wc *websocket.Conn

	terminate chan struct{}
	write     chan []byte
	writeErr  chan error
}

// NewConn upgrades an HTTP request to a WebSocket connection.
func NewConn(w http.ResponseWriter, req *http.Request) (*Conn, error) {
	wc, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		wc:        wc,
		terminate: make(chan struct{}),
		write:     make(chan []byte),
		writeErr:  make(chan error),
	}

	go c.run()

	return c, nil
}

// Close closes the connection.
func (c *Conn) Close() {
	c.wc.Close() //nolint:errcheck
	close(c.terminate)
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.wc.RemoteAddr()
}

// ReadLoop blocks reading (and discarding) client frames until the
// connection errors out or is closed, since a subscriber never sends
// anything meaningful back. The calling HTTP handler should hold its
// response open for as long as ReadLoop runs.
func (c *Conn) ReadLoop() {
	for {
		if _, _, err := c.wc.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Conn) run() {
	c.wc.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout)) //nolint:errcheck

	c.wc.SetPongHandler(func(string) error {
		c.wc.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout)) //nolint:errcheck
		return nil
	})

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case byts := <-c.write:
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			err := c.wc.WriteMessage(websocket.TextMessage, byts)
			c.writeErr <- err

		case <-pingTicker.C:
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			c.wc.WriteMessage(websocket.PingMessage, nil)       //nolint:errcheck

		case <-c.terminate:
			return
		}
	}
}

// WriteJSON serializes and sends a single event.
func (c *Conn) WriteJSON(in interface{}) error {
	byts, err := json.Marshal(in)
	if err != nil {
		return err
	}

	select {
	case c.write <- byts:
		return <-c.writeErr
	case <-c.terminate:
		return fmt.Errorf("terminated")
	}
}

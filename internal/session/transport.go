package session

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shengji/internal/protocol"
)

const (
	// Time allowed to write a message to a client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong after sending a ping on a
	// WebSocket transport; a silent client is declared dead after this.
	pongWait = 60 * time.Second

	// Interval at which WebSocket pings are sent; must be below pongWait.
	pingInterval = 50 * time.Second
)

// Transport carries opaque message payloads over one duplex connection.
// Framing is the transport's concern: raw TCP uses a 4-byte big-endian
// length prefix, WebSocket uses its own binary messages.
type Transport interface {
	ReadPayload() ([]byte, error)
	WritePayload([]byte) error
	Close() error
}

// frameTransport speaks length-prefixed frames over a stream connection.
type frameTransport struct {
	conn net.Conn
	r    *bufio.Reader

	writeMu sync.Mutex
}

// NewFrameTransport wraps a stream connection in the length-prefixed framing.
func NewFrameTransport(conn net.Conn) Transport {
	return &frameTransport{conn: conn, r: bufio.NewReader(conn)}
}

func (t *frameTransport) ReadPayload() ([]byte, error) {
	return protocol.ReadFrame(t.r)
}

func (t *frameTransport) WritePayload(payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return protocol.WriteFrame(t.conn, payload)
}

func (t *frameTransport) Close() error {
	return t.conn.Close()
}

// wsTransport carries payloads as WebSocket binary messages and keeps the
// connection alive with a ping/pong loop.
type wsTransport struct {
	conn *websocket.Conn

	writeMu  sync.Mutex
	stopPing chan struct{}
	stopOnce sync.Once
}

// NewWSTransport wraps an upgraded WebSocket connection.
func NewWSTransport(conn *websocket.Conn) Transport {
	t := &wsTransport{conn: conn, stopPing: make(chan struct{})}
	conn.SetReadLimit(protocol.MaxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go t.pingLoop()
	return t
}

func (t *wsTransport) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := t.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-t.stopPing:
			return
		}
	}
}

func (t *wsTransport) ReadPayload() ([]byte, error) {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *wsTransport) WritePayload(payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (t *wsTransport) Close() error {
	t.stopOnce.Do(func() { close(t.stopPing) })
	return t.conn.Close()
}

package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Channel is one open push connection. The server pushes one JSON-encoded
// notification per frame; the client never writes payloads.
type Channel interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens push channels.
type Dialer interface {
	Dial(ctx context.Context, url string) (Channel, error)
}

const (
	handshakeTimeout = 10 * time.Second
	maxFrameSize     = 64 * 1024
	closeWriteWait   = time.Second
)

// WSDialer opens WebSocket push channels with gorilla/websocket.
type WSDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewWSDialer returns a dialer that sends token as a bearer credential.
// An empty token sends no Authorization header.
func NewWSDialer(token string) *WSDialer {
	header := http.Header{}
	if token != "" {
		header.Add("Authorization", "Bearer "+token)
	}
	return &WSDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		header: header,
	}
}

func (d *WSDialer) Dial(ctx context.Context, url string) (Channel, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connection failed (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)
	return &wsChannel{conn: conn}, nil
}

type wsChannel struct {
	conn *websocket.Conn
}

func (c *wsChannel) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// Close sends a normal-closure frame before dropping the socket so the
// server sees a clean goodbye.
func (c *wsChannel) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
	return c.conn.Close()
}

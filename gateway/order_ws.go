package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultWSPath = "/ws/orders"
	writeWait     = 10 * time.Second
)

// StreamConn is one live order channel. ReadMessage must be called from a
// single goroutine and WriteJSON from a single goroutine; Close may be called
// from anywhere and more than once.
type StreamConn interface {
	// ReadMessage blocks for the next server message. A normal close by
	// either side is reported as io.EOF.
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// OrderStreamClient dials {Endpoint}{Path}/{id}.
type OrderStreamClient struct {
	Endpoint string // ws://localhost:8000
	Path     string // defaults to /ws/orders
	Dialer   *websocket.Dialer
	Header   http.Header
}

func NewOrderStreamClient(endpoint string, handshakeTimeout time.Duration) *OrderStreamClient {
	d := *websocket.DefaultDialer
	if handshakeTimeout > 0 {
		d.HandshakeTimeout = handshakeTimeout
	}
	return &OrderStreamClient{
		Endpoint: endpoint,
		Path:     DefaultWSPath,
		Dialer:   &d,
	}
}

// URL builds the channel address for id.
func (c *OrderStreamClient) URL(id OrderID) (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse ws endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported ws scheme %q", u.Scheme)
	}
	p := c.Path
	if p == "" {
		p = DefaultWSPath
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Trim(p, "/") + "/" + url.PathEscape(string(id))
	return u.String(), nil
}

// Dial opens the channel for id. It returns once the handshake completed,
// i.e. the channel is OPEN.
func (c *OrderStreamClient) Dial(ctx context.Context, id OrderID) (StreamConn, error) {
	target, err := c.URL(id)
	if err != nil {
		return nil, err
	}
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, target, c.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", target, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return newWSConn(conn), nil
}

type wsConn struct {
	conn      *websocket.Conn
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn, closed: make(chan struct{})}
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, msg, err := w.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		select {
		case <-w.closed:
			// closed locally
			return nil, io.EOF
		default:
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, io.EOF
		}
		return nil, err
	}
	return msg, nil
}

func (w *wsConn) WriteJSON(v interface{}) error {
	select {
	case <-w.closed:
		return ErrChannelClosed
	default:
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}

// Close sends a normal close frame and releases the socket.
func (w *wsConn) Close() error {
	w.closeOnce.Do(func() {
		close(w.closed)
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

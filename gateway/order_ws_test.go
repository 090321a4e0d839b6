package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestOrderStreamURL(t *testing.T) {
	cases := []struct {
		endpoint, path, want string
	}{
		{"ws://localhost:8000", "", "ws://localhost:8000/ws/orders/3"},
		{"http://localhost:8000/", "/orders", "ws://localhost:8000/orders/3"},
		{"https://example.com/api", "ws/orders/", "wss://example.com/api/ws/orders/3"},
	}
	for _, c := range cases {
		cli := &OrderStreamClient{Endpoint: c.endpoint, Path: c.path}
		got, err := cli.URL("3")
		if err != nil {
			t.Fatalf("%s: %v", c.endpoint, err)
		}
		if got != c.want {
			t.Fatalf("url = %s, want %s", got, c.want)
		}
	}
	if _, err := (&OrderStreamClient{Endpoint: "ftp://x"}).URL("3"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestOrderStreamRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	got := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/orders/3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"order_id":3,"status":"shipped"}`))
		_, msg, err := conn.ReadMessage()
		if err == nil {
			got <- string(msg)
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	defer ts.Close()

	cli := NewOrderStreamClient("ws"+strings.TrimPrefix(ts.URL, "http"), time.Second)
	conn, err := cli.Dial(context.Background(), "3")
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	defer conn.Close()

	msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read err: %v", err)
	}
	ev, err := ParseStatusEvent(msg)
	if err != nil || ev.Status != "shipped" {
		t.Fatalf("unexpected event %+v err=%v", ev, err)
	}

	if err := conn.WriteJSON(KeepAliveMessage); err != nil {
		t.Fatalf("write err: %v", err)
	}
	select {
	case m := <-got:
		if strings.TrimSpace(m) != `{"type":"keep-alive"}` {
			t.Fatalf("server got %s", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received keep-alive")
	}

	if _, err := conn.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on normal close, got %v", err)
	}
}

func TestOrderStreamLocalClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	cli := NewOrderStreamClient(ts.URL, 0)
	conn, err := cli.Dial(context.Background(), "3")
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}

	readErr := make(chan error, 1)
	go func() {
		_, err := conn.ReadMessage()
		readErr <- err
	}()

	if err := conn.Close(); err != nil {
		t.Fatalf("close err: %v", err)
	}
	_ = conn.Close()

	select {
	case err := <-readErr:
		if !errors.Is(err, io.EOF) {
			t.Fatalf("expected io.EOF after local close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reader not released by close")
	}
	if err := conn.WriteJSON(KeepAliveMessage); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestOrderStreamDialRejected(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cli := NewOrderStreamClient(ts.URL, time.Second)
	if _, err := cli.Dial(context.Background(), "3"); err == nil {
		t.Fatalf("expected dial error")
	}
}

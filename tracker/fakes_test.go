package tracker

import (
	"context"
	"io"
	"sync"
	"time"

	"order-tracker-go/gateway"
)

// fakeClock fires tickers only when AdvanceTo is called.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	tickers []*fakeTicker
}

type fakeTicker struct {
	clock    *fakeClock
	c        chan time.Time
	interval time.Duration
	next     time.Duration
	stopped  bool
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, c: make(chan time.Time, 1), interval: d, next: c.now + d}
	c.tickers = append(c.tickers, t)
	return t
}

// AdvanceTo moves the clock to the absolute offset to, firing due ticks.
func (c *fakeClock) AdvanceTo(to time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = to
	for _, t := range c.tickers {
		for !t.stopped && t.next <= to {
			select {
			case t.c <- time.Unix(0, 0).Add(t.next):
			default:
			}
			t.next += t.interval
		}
	}
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
}

func (t *fakeTicker) isStopped() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.stopped
}

type fakeFetcher struct {
	mu        sync.Mutex
	calls     int
	gate      chan struct{}
	ignoreCtx bool
	snap      gateway.OrderSnapshot
	err       error
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context, id gateway.OrderID) (gateway.OrderSnapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.gate != nil {
		if f.ignoreCtx {
			<-f.gate
		} else {
			select {
			case <-f.gate:
			case <-ctx.Done():
				return gateway.OrderSnapshot{}, ctx.Err()
			}
		}
	}
	return f.snap, f.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDialer struct {
	mu        sync.Mutex
	calls     int
	gate      chan struct{}
	conn      *fakeConn
	err       error
	cancelled bool
}

func (d *fakeDialer) Dial(ctx context.Context, id gateway.OrderID) (gateway.StreamConn, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			d.mu.Lock()
			d.cancelled = true
			d.mu.Unlock()
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) wasCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}

// fakeConn is a scripted StreamConn.
type fakeConn struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	reason     error
	writes     []interface{}
	localClose int
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m := <-c.in:
		return m, nil
	case <-c.closed:
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.reason
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	select {
	case <-c.closed:
		return gateway.ErrChannelClosed
	default:
	}
	c.mu.Lock()
	c.writes = append(c.writes, v)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.localClose++
	c.mu.Unlock()
	c.shutdown(io.EOF)
	return nil
}

// serverClose ends the stream from the remote side with reason.
func (c *fakeConn) serverClose(reason error) {
	c.shutdown(reason)
}

func (c *fakeConn) shutdown(reason error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.closed)
	})
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *fakeConn) localCloses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localClose
}

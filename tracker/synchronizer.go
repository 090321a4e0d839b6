// Package tracker keeps the displayed status of one order in sync with a
// one-shot snapshot fetch and a live update channel.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"order-tracker-go/gateway"
	"order-tracker-go/infrastructure/logger"
	"order-tracker-go/infrastructure/monitor"
)

// SnapshotFetcher performs the one-shot status read.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, id gateway.OrderID) (gateway.OrderSnapshot, error)
}

// ChannelDialer opens the live update channel. Dial returns once the channel
// is open.
type ChannelDialer interface {
	Dial(ctx context.Context, id gateway.OrderID) (gateway.StreamConn, error)
}

// Config tunes a Synchronizer.
type Config struct {
	KeepAliveInterval time.Duration // default 30s
	LoadingText       string        // shown before any data arrives
	ErrorText         string        // shown when the snapshot fails
}

// Components are the Synchronizer's collaborators. Logger, Monitor and Clock
// are optional.
type Components struct {
	Snapshots SnapshotFetcher
	Channel   ChannelDialer
	Logger    *logger.Logger
	Monitor   *monitor.Monitor
	Clock     Clock
}

// Synchronizer creates Handles. It holds no per-order state, so it can be
// shared, but each Handle tracks exactly one order.
type Synchronizer struct {
	config    Config
	snapshots SnapshotFetcher
	channel   ChannelDialer
	logger    *logger.Logger
	monitor   *monitor.Monitor
	clock     Clock
}

// New validates components and fills defaults.
func New(cfg Config, c Components) (*Synchronizer, error) {
	if c.Snapshots == nil {
		return nil, errors.New("snapshot fetcher is required")
	}
	if c.Channel == nil {
		return nil, errors.New("channel dialer is required")
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = 30 * time.Second
	}
	if cfg.LoadingText == "" {
		cfg.LoadingText = LoadingText
	}
	if cfg.ErrorText == "" {
		cfg.ErrorText = ErrorText
	}
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}
	if c.Monitor == nil {
		c.Monitor = monitor.New(monitor.DefaultConfig())
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	return &Synchronizer{
		config:    cfg,
		snapshots: c.Snapshots,
		channel:   c.Channel,
		logger:    c.Logger,
		monitor:   c.Monitor,
		clock:     c.Clock,
	}, nil
}

// FormatStatus renders the text shown for an order status.
func FormatStatus(id gateway.OrderID, status string) string {
	return fmt.Sprintf("Order %s status: %s", id, status)
}

// Stats counts what a Handle has processed so far.
type Stats struct {
	SnapshotsApplied int
	SnapshotErrors   int
	MessagesReceived int
	ParseErrors      int
	TransportErrors  int
	KeepAliveTicks   int
	KeepAlivesSent   int
	DisplayWrites    int
}

type eventKind int

const (
	evSnapshot eventKind = iota
	evOpen
	evMessage
	evError
	evClose
)

type event struct {
	kind     eventKind
	snapshot gateway.OrderSnapshot
	elapsed  time.Duration
	conn     gateway.StreamConn
	raw      []byte
	err      error
}

// Handle is one activation: it owns the display state, the live channel and
// the keep-alive ticker, and releases all of them on Deactivate.
type Handle struct {
	cfg     Config
	orderID gateway.OrderID
	display *Display
	log     *logger.Logger
	monitor *monitor.Monitor

	events   chan event
	stop     chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	stopOnce sync.Once
	handlers map[eventKind]func(event)

	// loop goroutine only
	conn   gateway.StreamConn
	ticker Ticker

	mu    sync.RWMutex
	state ChannelState
	stats Stats
}

// Activate fetches the snapshot once, opens the live channel and starts the
// keep-alive ticker bound to it. Cancelling ctx has the same effect as
// Deactivate.
func (s *Synchronizer) Activate(ctx context.Context, id gateway.OrderID) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cfg:     s.config,
		orderID: id,
		display: newDisplay(s.config.LoadingText),
		log:     s.logger.WithFields(map[string]interface{}{"order_id": string(id)}),
		monitor: s.monitor,
		events:  make(chan event),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		cancel:  cancel,
		state:   StateConnecting,
	}
	h.handlers = map[eventKind]func(event){
		evSnapshot: h.onSnapshot,
		evOpen:     h.onOpen,
		evMessage:  h.onMessage,
		evError:    h.onError,
		evClose:    h.onClose,
	}
	h.monitor.UpdateChannelState(int(StateConnecting))
	h.log.LogChannel("activate", map[string]interface{}{
		"keepalive_interval": s.config.KeepAliveInterval.String(),
	})

	go h.loadSnapshot(ctx, s.snapshots)
	go h.openChannel(ctx, s.channel)
	h.ticker = s.clock.NewTicker(s.config.KeepAliveInterval)
	go h.run(ctx)
	return h
}

// Deactivate stops the keep-alive ticker, then closes the channel. When it
// returns no further tick or send happens. Safe to call more than once.
func (h *Handle) Deactivate() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.cancel()
	<-h.done
}

// Done is closed once the Handle has released its resources.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) OrderID() gateway.OrderID { return h.orderID }

// Display is the read-only view of the status text.
func (h *Handle) Display() *Display { return h.display }

// State reports the live channel state.
func (h *Handle) State() ChannelState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *Handle) Stats() Stats {
	h.mu.RLock()
	st := h.stats
	h.mu.RUnlock()
	st.DisplayWrites = h.display.writeCount()
	return st
}

// post hands ev to the loop; false once the loop has exited.
func (h *Handle) post(ev event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

func (h *Handle) loadSnapshot(ctx context.Context, f SnapshotFetcher) {
	start := time.Now()
	snap, err := f.FetchSnapshot(ctx, h.orderID)
	h.post(event{kind: evSnapshot, snapshot: snap, err: err, elapsed: time.Since(start)})
}

func (h *Handle) openChannel(ctx context.Context, d ChannelDialer) {
	conn, err := d.Dial(ctx, h.orderID)
	if err != nil {
		if h.post(event{kind: evError, err: err}) {
			h.post(event{kind: evClose})
		}
		return
	}
	if !h.post(event{kind: evOpen, conn: conn}) {
		_ = conn.Close()
		return
	}
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) && !h.post(event{kind: evError, err: err}) {
				return
			}
			h.post(event{kind: evClose})
			return
		}
		if !h.post(event{kind: evMessage, raw: raw}) {
			return
		}
	}
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-h.stop:
			h.teardown("deactivated")
			return
		case <-ctx.Done():
			h.teardown("context done")
			return
		case ev := <-h.events:
			if fn, ok := h.handlers[ev.kind]; ok {
				fn(ev)
			}
		case <-h.ticker.C():
			h.onKeepAliveTick()
		}
	}
}

// teardown stops the ticker before asking the channel to close.
func (h *Handle) teardown(reason string) {
	h.ticker.Stop()
	if h.conn != nil {
		if err := h.conn.Close(); err != nil {
			h.log.Debug("close live channel", zap.Error(err))
		}
		h.conn = nil
		h.monitor.RecordWSDisconnect()
	}
	h.setState(StateClosed)
	h.display.close()
	h.log.LogChannel("deactivate", map[string]interface{}{"reason": reason})
}

func (h *Handle) setState(to ChannelState) {
	h.mu.Lock()
	from := h.state
	if err := validateTransition(from, to); err != nil {
		h.mu.Unlock()
		h.log.Warn("ignored channel transition", zap.Error(err))
		return
	}
	h.state = to
	h.mu.Unlock()
	if from != to {
		h.monitor.UpdateChannelState(int(to))
	}
}

func (h *Handle) count(fn func(*Stats)) {
	h.mu.Lock()
	fn(&h.stats)
	h.mu.Unlock()
}

func (h *Handle) write(text, source string) {
	h.display.set(text)
	h.monitor.RecordDisplayUpdate(source)
}

func (h *Handle) onSnapshot(ev event) {
	if ev.err != nil {
		reason := "fetch"
		var pe *gateway.ParseError
		if errors.As(ev.err, &pe) {
			reason = "parse"
			h.monitor.RecordParseError(gateway.SourceSnapshot)
		}
		h.monitor.RecordSnapshot("error", ev.elapsed.Seconds())
		h.monitor.RecordSnapshotError(reason)
		h.count(func(s *Stats) { s.SnapshotErrors++ })
		h.log.LogError(ev.err, map[string]interface{}{"action": "fetch_snapshot", "reason": reason})
		h.write(h.cfg.ErrorText, gateway.SourceSnapshot)
		return
	}
	h.monitor.RecordSnapshot("ok", ev.elapsed.Seconds())
	h.count(func(s *Stats) { s.SnapshotsApplied++ })
	h.write(FormatStatus(ev.snapshot.ID, ev.snapshot.Status), gateway.SourceSnapshot)
	h.log.LogStatus("snapshot_applied", string(ev.snapshot.ID), map[string]interface{}{
		"status":  ev.snapshot.Status,
		"latency": ev.elapsed.String(),
	})
}

func (h *Handle) onOpen(ev event) {
	h.conn = ev.conn
	h.setState(StateOpen)
	h.monitor.RecordWSConnection()
	h.log.LogChannel("channel_open", nil)
}

func (h *Handle) onMessage(ev event) {
	h.monitor.RecordMessage()
	h.count(func(s *Stats) { s.MessagesReceived++ })

	se, err := gateway.ParseStatusEvent(ev.raw)
	if err != nil {
		h.monitor.RecordParseError(gateway.SourceChannel)
		h.count(func(s *Stats) { s.ParseErrors++ })
		h.log.Warn("discarded malformed status event", zap.Error(err), zap.ByteString("raw", ev.raw))
		return
	}
	// TODO: drop events for other orders once the server is known to scope channels per order.
	if se.OrderID != h.orderID {
		h.monitor.RecordForeignMessage()
		h.log.Warn("status event names a different order",
			zap.String("event_order_id", string(se.OrderID)))
	}
	h.write(FormatStatus(se.OrderID, se.Status), gateway.SourceChannel)
	h.log.LogStatus("event_applied", string(se.OrderID), map[string]interface{}{"status": se.Status})
}

// onError never changes state; closure comes from the transport or teardown.
func (h *Handle) onError(ev event) {
	h.monitor.RecordWSError()
	h.count(func(s *Stats) { s.TransportErrors++ })
	h.log.LogError(ev.err, map[string]interface{}{"action": "live_channel", "state": h.State().String()})
}

// onClose does not reconnect.
func (h *Handle) onClose(event) {
	if h.conn != nil {
		_ = h.conn.Close()
		h.conn = nil
		h.monitor.RecordWSDisconnect()
	}
	h.setState(StateClosed)
	h.log.LogChannel("channel_closed", nil)
}

func (h *Handle) onKeepAliveTick() {
	h.count(func(s *Stats) { s.KeepAliveTicks++ })
	if h.State() != StateOpen || h.conn == nil {
		h.monitor.RecordKeepAlive(false)
		return
	}
	if err := h.conn.WriteJSON(gateway.KeepAliveMessage); err != nil {
		h.monitor.RecordWSError()
		h.count(func(s *Stats) { s.TransportErrors++ })
		h.log.LogError(err, map[string]interface{}{"action": "keep_alive"})
		return
	}
	h.monitor.RecordKeepAlive(true)
	h.count(func(s *Stats) { s.KeepAlivesSent++ })
	h.log.Debug("keep-alive sent")
}

// Package sim is an in-process stand-in for the order backend: the snapshot
// endpoint and the per-order live status channel.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"order-tracker-go/infrastructure/logger"
)

// DefaultStatus is the status a new order starts in.
const DefaultStatus = "processing"

// LegacyGreeting is the plain-text line older backends pushed on connect.
const LegacyGreeting = "Order status: Your order is in processing!"

const (
	sendBuffer = 16
	writeWait  = 5 * time.Second
)

// ErrUnknownOrder is returned for ids that were never added.
var ErrUnknownOrder = errors.New("order not found")

type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Order is the snapshot body served by GET /orders/{id}.
type Order struct {
	ID     int64       `json:"id"`
	Status string      `json:"status"`
	Items  []OrderItem `json:"items"`
}

type statusPush struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type clientMessage struct {
	Type string `json:"type"`
}

// Options tweak the stub's behavior.
type Options struct {
	// Greeting sends LegacyGreeting to every new channel before any update.
	Greeting bool
	Logger   *logger.Logger
}

// Server routes the snapshot and live channel endpoints.
type Server struct {
	Router *mux.Router

	opts     Options
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	orders     map[int64]*Order
	subs       map[int64]map[*subscriber]struct{}
	keepAlives int
	unknown    int
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewServer returns a stub with no orders.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	s := &Server{
		Router: mux.NewRouter(),
		opts:   opts,
		log:    opts.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		orders: make(map[int64]*Order),
		subs:   make(map[int64]map[*subscriber]struct{}),
	}
	s.Router.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	s.Router.HandleFunc("/ws/orders/{id}", s.handleChannel)
	return s
}

// AddOrder registers an order in DefaultStatus.
func (s *Server) AddOrder(id int64, items ...OrderItem) Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if items == nil {
		items = []OrderItem{}
	}
	o := &Order{ID: id, Status: DefaultStatus, Items: items}
	s.orders[id] = o
	return *o
}

// Order returns a copy of the stored order.
func (s *Server) Order(id int64) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// SetStatus updates the order and pushes {order_id,status} to every channel
// open for it.
func (s *Server) SetStatus(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	o.Status = status
	raw, err := json.Marshal(statusPush{OrderID: id, Status: status})
	if err != nil {
		return err
	}
	for sub := range s.subs[id] {
		s.enqueue(id, sub, raw)
	}
	s.log.LogStatus("stub_status_set", strconv.FormatInt(id, 10), map[string]interface{}{
		"status":      status,
		"subscribers": len(s.subs[id]),
	})
	return nil
}

// PushRaw sends raw bytes to every channel open for id.
func (s *Server) PushRaw(id int64, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs[id] {
		s.enqueue(id, sub, raw)
	}
}

// Subscribers reports how many channels are open for id.
func (s *Server) Subscribers(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[id])
}

// KeepAlives reports how many keep-alive messages clients sent.
func (s *Server) KeepAlives() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keepAlives
}

// UnknownMessages reports client messages that were not keep-alives.
func (s *Server) UnknownMessages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unknown
}

// CloseChannels closes every open channel for id with a normal close frame.
func (s *Server) CloseChannels(id int64) {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs[id]))
	for sub := range s.subs[id] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	for _, sub := range subs {
		_ = sub.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}
}

// Run walks id through statuses, one step per interval, until ctx is done or
// the steps run out.
func (s *Server) Run(ctx context.Context, id int64, interval time.Duration, statuses ...string) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for _, status := range statuses {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if err := s.SetStatus(id, status); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "order id must be an integer")
		return
	}
	o, ok := s.Order(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Order not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(o)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "order id must be an integer", http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	go sub.writeLoop()

	s.mu.Lock()
	if s.subs[id] == nil {
		s.subs[id] = make(map[*subscriber]struct{})
	}
	s.subs[id][sub] = struct{}{}
	if s.opts.Greeting {
		s.enqueue(id, sub, []byte(LegacyGreeting))
	}
	s.mu.Unlock()
	s.log.LogChannel("stub_subscribe", map[string]interface{}{"order_id": id})

	s.readLoop(id, sub)
}

func (s *Server) readLoop(id int64, sub *subscriber) {
	defer s.unsubscribe(id, sub)
	for {
		_, raw, err := sub.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("channel read ended", zap.Error(err))
			}
			return
		}
		var msg clientMessage
		s.mu.Lock()
		if json.Unmarshal(raw, &msg) == nil && msg.Type == "keep-alive" {
			s.keepAlives++
		} else {
			s.unknown++
		}
		s.mu.Unlock()
	}
}

// enqueue must be called with s.mu held. A subscriber that cannot keep up is
// dropped.
func (s *Server) enqueue(id int64, sub *subscriber, raw []byte) {
	select {
	case sub.send <- raw:
	default:
		s.log.Warn("dropping slow channel", zap.Int64("order_id", id))
		s.removeLocked(id, sub)
	}
}

func (s *Server) unsubscribe(id int64, sub *subscriber) {
	s.mu.Lock()
	s.removeLocked(id, sub)
	s.mu.Unlock()
	s.log.LogChannel("stub_unsubscribe", map[string]interface{}{"order_id": id})
}

func (s *Server) removeLocked(id int64, sub *subscriber) {
	if _, ok := s.subs[id][sub]; !ok {
		return
	}
	delete(s.subs[id], sub)
	if len(s.subs[id]) == 0 {
		delete(s.subs, id)
	}
	close(sub.send)
}

// writeLoop owns all data writes on the connection.
func (sub *subscriber) writeLoop() {
	defer sub.conn.Close()
	for raw := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}

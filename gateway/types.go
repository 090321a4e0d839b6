package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderID is an opaque order identifier. On the wire it may be a JSON string
// or an integer; both decode to the same textual form.
type OrderID string

func (id *OrderID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = OrderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order id must be a string or number: %w", err)
	}
	*id = OrderID(n.String())
	return nil
}

// MarshalJSON emits integer ids as JSON numbers and everything else as strings.
func (id OrderID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id OrderID) numeric() bool {
	if id == "" {
		return false
	}
	for i, r := range id {
		if r == '-' && i == 0 && len(id) > 1 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (id OrderID) String() string { return string(id) }

// OrderSnapshot is the subset of GET /orders/{id} the tracker reads.
type OrderSnapshot struct {
	ID     OrderID `json:"id"`
	Status string  `json:"status"`
}

// StatusEvent is a server push on the live channel.
type StatusEvent struct {
	OrderID OrderID `json:"order_id"`
	Status  string  `json:"status"`
}

// KeepAlive is the client->server liveness message.
type KeepAlive struct {
	Type string `json:"type"`
}

// KeepAliveMessage is sent on every keep-alive tick while the channel is open.
var KeepAliveMessage = KeepAlive{Type: "keep-alive"}

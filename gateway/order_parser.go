package gateway

import (
	"encoding/json"
	"errors"
)

const (
	SourceSnapshot = "snapshot"
	SourceChannel  = "channel"
)

type snapshotWire struct {
	ID     *OrderID `json:"id"`
	Status *string  `json:"status"`
}

type eventWire struct {
	OrderID *OrderID `json:"order_id"`
	Status  *string  `json:"status"`
}

// ParseSnapshot decodes a GET /orders/{id} body. Extra fields (items, customer)
// are ignored; id and status are required.
func ParseSnapshot(raw []byte) (OrderSnapshot, error) {
	var w snapshotWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return OrderSnapshot{}, &ParseError{Source: SourceSnapshot, Raw: raw, Err: err}
	}
	if w.ID == nil || *w.ID == "" {
		return OrderSnapshot{}, &ParseError{Source: SourceSnapshot, Raw: raw, Err: errors.New("missing id")}
	}
	if w.Status == nil {
		return OrderSnapshot{}, &ParseError{Source: SourceSnapshot, Raw: raw, Err: errors.New("missing status")}
	}
	return OrderSnapshot{ID: *w.ID, Status: *w.Status}, nil
}

// ParseStatusEvent decodes a server push {"order_id":..,"status":..}.
func ParseStatusEvent(raw []byte) (StatusEvent, error) {
	var w eventWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return StatusEvent{}, &ParseError{Source: SourceChannel, Raw: raw, Err: err}
	}
	if w.OrderID == nil || *w.OrderID == "" {
		return StatusEvent{}, &ParseError{Source: SourceChannel, Raw: raw, Err: errors.New("missing order_id")}
	}
	if w.Status == nil {
		return StatusEvent{}, &ParseError{Source: SourceChannel, Raw: raw, Err: errors.New("missing status")}
	}
	return StatusEvent{OrderID: *w.OrderID, Status: *w.Status}, nil
}

package gateway

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is returned by writes on a channel that was already closed.
var ErrChannelClosed = errors.New("live channel closed")

// FetchError reports a failed snapshot request: transport failure or a
// non-success status. StatusCode is zero for transport failures.
type FetchError struct {
	OrderID    OrderID
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch order %s: status %d", e.OrderID, e.StatusCode)
	}
	return fmt.Sprintf("fetch order %s: %v", e.OrderID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a payload that is not a well formed snapshot or event.
type ParseError struct {
	Source string // snapshot or channel
	Raw    []byte
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

package tracker

import "fmt"

// ChannelState is the live channel's position in CONNECTING -> OPEN -> CLOSED.
type ChannelState int

const (
	StateConnecting ChannelState = iota
	StateOpen
	StateClosed
)

func (s ChannelState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

type stateTransition struct {
	from, to ChannelState
}

// legal transitions; CLOSED is terminal.
var channelTransitions = map[stateTransition]bool{
	{StateConnecting, StateOpen}:   true,
	{StateConnecting, StateClosed}: true,
	{StateOpen, StateClosed}:       true,
}

func validateTransition(from, to ChannelState) error {
	if from == to {
		return nil
	}
	if !channelTransitions[stateTransition{from, to}] {
		return fmt.Errorf("illegal channel transition: %s -> %s", from, to)
	}
	return nil
}

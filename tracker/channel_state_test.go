package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to ChannelState
		ok       bool
	}{
		{StateConnecting, StateOpen, true},
		{StateConnecting, StateClosed, true},
		{StateOpen, StateClosed, true},
		{StateClosed, StateClosed, true},
		{StateOpen, StateConnecting, false},
		{StateClosed, StateOpen, false},
		{StateClosed, StateConnecting, false},
	}
	for _, tt := range tests {
		err := validateTransition(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.Error(t, err, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestChannelStateString(t *testing.T) {
	assert.Equal(t, "CONNECTING", StateConnecting.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "UNKNOWN", ChannelState(9).String())
}

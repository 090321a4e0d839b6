package tracker

import "sync"

const (
	LoadingText = "Loading order status..."
	ErrorText   = "Error loading order status"
)

// DisplayState is the status text currently shown to the user.
type DisplayState struct {
	Text string
}

// Display holds one DisplayState and notifies subscribers of every
// replacement. Only the owning Handle writes to it.
type Display struct {
	mu     sync.RWMutex
	state  DisplayState
	subs   []chan DisplayState
	writes int
	closed bool
}

func newDisplay(initial string) *Display {
	return &Display{state: DisplayState{Text: initial}}
}

// Current returns the value being shown right now.
func (d *Display) Current() DisplayState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Subscribe returns a channel that first yields the current value and then
// every later value. A slow reader only sees the latest value. The channel is
// closed when the owning Handle is deactivated.
func (d *Display) Subscribe() <-chan DisplayState {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan DisplayState, 1)
	if d.closed {
		close(ch)
		return ch
	}
	ch <- d.state
	d.subs = append(d.subs, ch)
	return ch
}

func (d *Display) set(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.state = DisplayState{Text: text}
	d.writes++
	for _, ch := range d.subs {
		// drop the stale value so the newest one always fits
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- d.state:
		default:
		}
	}
}

func (d *Display) writeCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.writes
}

func (d *Display) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.subs {
		close(ch)
	}
	d.subs = nil
}

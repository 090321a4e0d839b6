package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplaySetReplacesText(t *testing.T) {
	d := newDisplay(LoadingText)
	assert.Equal(t, LoadingText, d.Current().Text)

	d.set("Order 1 status: shipped")
	d.set("Order 1 status: delivered")
	assert.Equal(t, "Order 1 status: delivered", d.Current().Text)
	assert.Equal(t, 2, d.writeCount())
}

func TestDisplaySubscriberSeesLatestOnly(t *testing.T) {
	d := newDisplay(LoadingText)
	sub := d.Subscribe()

	d.set("a")
	d.set("b")
	d.set("c")

	require.Len(t, sub, 1)
	assert.Equal(t, "c", (<-sub).Text)
}

func TestDisplayCloseEndsSubscriptions(t *testing.T) {
	d := newDisplay(LoadingText)
	sub := d.Subscribe()
	d.close()
	d.close()

	var got []string
	for v := range sub {
		got = append(got, v.Text)
	}
	assert.Equal(t, []string{LoadingText}, got)

	d.set("ignored")
	assert.Equal(t, LoadingText, d.Current().Text)
	assert.Equal(t, 0, d.writeCount())

	_, ok := <-d.Subscribe()
	assert.False(t, ok)
}

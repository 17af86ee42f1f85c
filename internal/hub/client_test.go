package hub

import (
	"sync"
	"testing"
	"time"

	"chatline/internal/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeSendAfterCloseReturnsFalse(t *testing.T) {
	c := testClient("alice")
	ev, err := event.Outbound(event.EventMessage, map[string]string{"content": "hi"})
	require.NoError(t, err)

	require.True(t, c.SafeSend(ev, time.Millisecond))
	c.Close()
	assert.False(t, c.SafeSend(ev, time.Millisecond))
}

func TestSafeSendConcurrentWithClose(t *testing.T) {
	c := testClient("alice")
	ev, err := event.Outbound(event.EventMessage, map[string]string{"content": "hi"})
	require.NoError(t, err)

	// Close racing enqueues must never close the egress channel under a
	// pending send.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.SafeSend(ev, time.Millisecond)
			}
		}()
	}
	c.Close()
	wg.Wait()

	assert.True(t, c.IsClosed())
}

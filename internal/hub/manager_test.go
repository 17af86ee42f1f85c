package hub

import (
	"testing"
	"time"

	"chatline/internal/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopIsIdempotent(t *testing.T) {
	_, h, _ := newTestHandler(t)

	// The server loop and the container teardown both call Stop on the same
	// shutdown; a second call must be a no-op.
	assert.NotPanics(t, func() {
		h.Stop()
		h.Stop()
	})
}

func TestWorkersDrainInboundQueue(t *testing.T) {
	_, h, msgs := newTestHandler(t)
	c := testClient("alice")

	ev := mustEvent(t, event.EventSendMessage, event.SendMessagePayload{
		SenderID:       "alice",
		ConversationID: "c1",
		Content:        "hi",
	})
	h.inbound <- inboundEvent{client: c, event: ev}

	require.Eventually(t, func() bool {
		return msgs.sentLen() == 1
	}, time.Second, 10*time.Millisecond)
}

package sse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishIsScopedPerOrg(t *testing.T) {
	h := NewHub()
	defer h.Stop()

	_, acme := h.Subscribe("acme")
	_, globex := h.Subscribe("globex")
	assert.Equal(t, 2, h.ClientCount())

	h.Publish("acme", Message{Event: "briefing", Data: "top actions"})

	msg := <-acme
	assert.Equal(t, "briefing", msg.Event)
	assert.Equal(t, "top actions", msg.Data)
	assert.Empty(t, globex)
}

func TestHubDropsWhenClientBufferFull(t *testing.T) {
	h := NewHub()
	defer h.Stop()

	id, ch := h.Subscribe("acme")
	for i := 0; i < clientBuffer+5; i++ {
		h.Publish("acme", Message{Event: "snapshot", Data: "x"})
	}
	assert.Len(t, ch, clientBuffer)

	h.Unsubscribe(id)
	assert.Equal(t, 0, h.ClientCount())
}

func TestSenderReactsOnlyToSSEChannel(t *testing.T) {
	h := NewHub()
	defer h.Stop()
	_, ch := h.Subscribe("acme")
	s := &Sender{Hub: h, Org: "acme"}

	require.NoError(t, s.Send(context.Background(), []string{"log"}, "snap", "brief"))
	assert.Empty(t, ch)

	require.NoError(t, s.Send(context.Background(), []string{"log", "sse"}, "snap", "brief"))
	require.Len(t, ch, 2)
	first := <-ch
	assert.Equal(t, "snapshot", first.Event)
	second := <-ch
	assert.Equal(t, "briefing", second.Event)
}

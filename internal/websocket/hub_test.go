package websocket

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubPublishesToUserClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	alice := NewClient(hub, nil, 1)
	aliceTab := NewClient(hub, nil, 1)
	bob := NewClient(hub, nil, 2)
	for _, c := range []*Client{alice, aliceTab, bob} {
		require.True(t, hub.Register(ctx, c))
	}
	require.Eventually(t, func() bool { return hub.Connected(1) == 2 }, time.Second, 5*time.Millisecond)

	hub.PublishEvent(1, []byte(`{"event_type":"x"}`))
	require.Equal(t, `{"event_type":"x"}`, string(<-alice.send))
	require.Equal(t, `{"event_type":"x"}`, string(<-aliceTab.send))
	require.Len(t, bob.send, 0)

	hub.leave(alice)
	require.Eventually(t, func() bool { return hub.Connected(1) == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-alice.send
	require.False(t, open, "unregistering closes the send channel")

	cancel()
	_, open = <-bob.send
	require.False(t, open, "shutdown closes remaining clients")
	require.False(t, hub.Register(context.Background(), NewClient(hub, nil, 3)))
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	c := NewClient(hub, nil, 7)
	require.True(t, hub.Register(ctx, c))
	require.Eventually(t, func() bool { return hub.Connected(7) == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < cap(c.send)+10; i++ {
		hub.PublishEvent(7, []byte("m"))
	}
	require.Len(t, c.send, cap(c.send))
}

func TestUpgraderOrigins(t *testing.T) {
	u := NewUpgrader([]string{"https://app.example.com"})

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://app.example.com")
	require.True(t, u.CheckOrigin(r))

	r.Header.Set("Origin", "https://evil.example.com")
	require.False(t, u.CheckOrigin(r))

	require.True(t, NewUpgrader([]string{"*"}).CheckOrigin(r))
}

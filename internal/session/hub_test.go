package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerTestClient adds a bare client (no websocket) to the hub and
// returns its send channel.
func registerTestClient(hub *Hub, room string) *Client {
	c := &Client{
		hub:  hub,
		room: room,
		send: make(chan []byte, 16),
	}
	hub.register <- c
	return c
}

func recvOrTimeout(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.send:
		return data
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RoomIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := registerTestClient(hub, "sess-a")
	b := registerTestClient(hub, "sess-b")

	hub.Send("sess-a", []byte("for-a"))

	assert.Equal(t, "for-a", string(recvOrTimeout(t, a)))
	assertSilent(t, b)
}

func TestHub_EmptyRoomReachesEveryone(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := registerTestClient(hub, "sess-a")
	b := registerTestClient(hub, "sess-b")

	hub.Send("", []byte("global"))

	assert.Equal(t, "global", string(recvOrTimeout(t, a)))
	assert.Equal(t, "global", string(recvOrTimeout(t, b)))
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := registerTestClient(hub, "sess-a")
	hub.unregister <- a

	select {
	case _, open := <-a.send:
		assert.False(t, open, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHub_SlowConsumerDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{hub: hub, room: "sess-a", send: make(chan []byte)}
	hub.register <- slow
	fast := registerTestClient(hub, "sess-a")

	// Nobody reads slow.send, so the hub drops the client instead of
	// blocking the room.
	hub.Send("sess-a", []byte("one"))
	require.Equal(t, "one", string(recvOrTimeout(t, fast)))

	hub.Send("sess-a", []byte("two"))
	assert.Equal(t, "two", string(recvOrTimeout(t, fast)))
}

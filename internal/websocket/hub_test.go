package websocket

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheers-go/internal/logger"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHub_DeliversToEveryConnectionOfUser(t *testing.T) {
	h := startHub(t)
	tab1 := &Client{hub: h, send: make(chan []byte, 1), UserID: 7}
	tab2 := &Client{hub: h, send: make(chan []byte, 1), UserID: 7}
	other := &Client{hub: h, send: make(chan []byte, 1), UserID: 8}
	h.register <- tab1
	h.register <- tab2
	h.register <- other

	require.True(t, h.SendToUser(7, []byte(`{"type":"review.cheered"}`)))

	assert.JSONEq(t, `{"type":"review.cheered"}`, string(recv(t, tab1.send)))
	assert.JSONEq(t, `{"type":"review.cheered"}`, string(recv(t, tab2.send)))
	select {
	case <-other.send:
		t.Fatal("message delivered to the wrong user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	c := &Client{hub: h, send: make(chan []byte, 1), UserID: 3}
	h.register <- c
	h.unregister <- c

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := startHub(t)
	c := &Client{hub: h, send: make(chan []byte, 1), UserID: 4}
	c.send <- []byte("pending") // 缓冲已满
	marker := &Client{hub: h, send: make(chan []byte, 1), UserID: 5}
	h.register <- c
	h.register <- marker
	h.SendToUser(4, []byte("x"))
	h.SendToUser(5, []byte("sync"))
	recv(t, marker.send) // direct 队列按顺序处理

	assert.Equal(t, "pending", string(recv(t, c.send)))
	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("slow client not dropped")
	}
}

func TestHub_LeaveAfterShutdownDoesNotBlock(t *testing.T) {
	h := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := &Client{hub: h, send: make(chan []byte, 1), UserID: 9}
	h.register <- c
	cancel()
	<-stopped

	// Run closed the send channel on the way out
	_, ok := <-c.send
	assert.False(t, ok)

	left := make(chan struct{})
	go func() {
		h.leave(c)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked on a stopped hub")
	}
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	u := NewUpgrader([]string{"http://localhost:5173"})
	req := func(origin string) bool {
		r, _ := http.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return u.CheckOrigin(r)
	}
	assert.True(t, req("http://localhost:5173"))
	assert.True(t, req(""))
	assert.False(t, req("https://evil.example"))
}

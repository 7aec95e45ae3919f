package websocket

import (
	"context"

	"cheers-go/internal/metrics"

	"github.com/sirupsen/logrus"
)

type directMessage struct {
	userID  uint
	payload []byte
}

// Hub tracks the live feed connections of each user and delivers payloads to them.
// A user may hold several connections (one per browser tab).
type Hub struct {
	clients    map[uint]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	direct     chan directMessage
	done       chan struct{} // closed when Run returns
	log        logrus.FieldLogger
}

// NewHub creates a new Hub.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage, 256),
		done:       make(chan struct{}),
		log:        log.WithField("component", "feed-hub"),
	}
}

// SendToUser queues payload for every connection of userID.
// It never blocks; false means the hub queue was full and the payload was dropped.
func (h *Hub) SendToUser(userID uint, payload []byte) bool {
	select {
	case h.direct <- directMessage{userID: userID, payload: payload}:
		return true
	default:
		h.log.WithField("user_id", userID).Warn("hub queue full, dropping feed message")
		return false
	}
}

// Run 处理注册、注销与投递，直到 ctx 结束；结束时关闭所有连接的发送通道。
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for c := range conns {
					close(c.send)
					metrics.FeedConnectionClosed()
				}
			}
			h.clients = make(map[uint]map[*Client]struct{})
			return

		case client := <-h.register:
			conns, ok := h.clients[client.UserID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[client.UserID] = conns
			}
			conns[client] = struct{}{}
			metrics.FeedConnectionOpened()
			h.log.WithFields(logrus.Fields{"user_id": client.UserID, "connections": len(conns)}).Debug("client registered")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.direct:
			for c := range h.clients[msg.userID] {
				select {
				case c.send <- msg.payload:
				default:
					// 发送缓冲已满，视为慢客户端
					h.log.WithField("user_id", msg.userID).Warn("client send buffer full, dropping connection")
					h.remove(c)
				}
			}
		}
	}
}

// leave unregisters c, or returns at once if the hub has already stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	metrics.FeedConnectionClosed()
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
	h.log.WithField("user_id", c.UserID).Debug("client unregistered")
}

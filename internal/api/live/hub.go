package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rifaonline/rifa-api/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
	eventBuffer    = 256
)

var ErrHubClosed = errors.New("live hub closed")

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	raffleID uint
}

// Hub fans raffle events out to the websocket clients subscribed to that raffle.
type Hub struct {
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	subscribers map[uint]map[*Client]struct{}

	broadcast  chan domain.RaffleEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		subscribers: make(map[uint]map[*Client]struct{}),
		broadcast:   make(chan domain.RaffleEvent, eventBuffer),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}

		return false
	}
}

// Publish never blocks. Events are dropped when the hub is saturated.
func (h *Hub) Publish(event domain.RaffleEvent) {
	select {
	case h.broadcast <- event:
	default:
		zap.L().Warn("live feed saturated, event dropped",
			zap.Uint("raffle_id", event.RaffleID),
			zap.String("type", string(event.Type)))
	}
}

// Subscribers returns the number of clients watching raffleID.
func (h *Hub) Subscribers(raffleID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[raffleID])
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for raffleID, clients := range h.subscribers {
				for c := range clients {
					close(c.send)
				}
				delete(h.subscribers, raffleID)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.subscribers[c.raffleID] == nil {
				h.subscribers[c.raffleID] = make(map[*Client]struct{})
			}
			h.subscribers[c.raffleID][c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				zap.L().Error("json.Marshal raffle event", zap.Error(err))
				continue
			}

			h.mu.Lock()
			for c := range h.subscribers[event.RaffleID] {
				select {
				case c.send <- message:
				default:
					// Slow client.
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *Client) {
	clients, ok := h.subscribers[c.raffleID]
	if !ok {
		return
	}
	if _, ok = clients[c]; !ok {
		return
	}

	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.subscribers, c.raffleID)
	}
}

// Serve upgrades the request and subscribes the connection to raffleID. The snapshot, when
// given, is the first message the client receives.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, raffleID uint, snapshot *domain.RaffleEvent) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		raffleID: raffleID,
	}
	if snapshot != nil {
		if message, err := json.Marshal(snapshot); err == nil {
			c.send <- message
		}
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return ErrHubClosed
	}

	go c.writePump()
	go c.readPump()

	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the connection alive. Subscribers never send anything meaningful.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("live client closed", zap.Uint("raffle_id", c.raffleID), zap.Error(err))
			}
			return
		}
	}
}

// Package tradetape broadcasts executed trades to connected WebSocket
// clients, wired behind cmd/replay's -ws flag. A register/unregister/
// broadcast Hub holds one outbound goroutine per client so a slow
// reader never blocks the trade feed.
package tradetape

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"larkbook/internal/common"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TradeEvent is the wire shape for one broadcast trade.
type TradeEvent struct {
	Time          string  `json:"time"`
	Price         int64   `json:"price"`
	Size          float64 `json:"size"`
	TakerSide     string  `json:"taker_side"`
	TakerTraderID int64   `json:"taker_trader_id"`
	MakerTraderID int64   `json:"maker_trader_id"`
}

// Hub fans out trades to every connected WebSocket client.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs an idle Hub; call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBufferSize),
	}
}

// Run drives the hub's register/unregister/broadcast loop. It has no
// stop signal and never returns; it ends only when the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			log.Debug().Int("clients", len(h.clients)).Msg("tradetape: client connected")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// BroadcastTrade marshals and fans out one trade. Non-blocking: a full
// broadcast buffer drops the trade rather than stall the caller (the
// single goroutine driving the matching engine must never block on a
// slow WebSocket client).
func (h *Hub) BroadcastTrade(t common.Trade) {
	evt := TradeEvent{
		Time:          t.Time,
		Price:         t.Price,
		Size:          t.Size,
		TakerSide:     t.TakerSide.String(),
		TakerTraderID: t.TakerTraderID,
		MakerTraderID: t.MakerTraderID,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn().Msg("tradetape: broadcast buffer full, dropping trade")
	}
}

// ServeHTTP upgrades a request to a WebSocket connection and registers
// it with the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("tradetape: upgrade failed")
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		// Read-only feed; client messages are ignored.
	}
}

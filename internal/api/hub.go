package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zappabad/agriflow/internal/logging"
	"github.com/zappabad/agriflow/internal/market"
	marketview "github.com/zappabad/agriflow/internal/market/view"
	"github.com/zappabad/agriflow/internal/news"
)

// Stream message types.
const (
	MessageSnapshot = "snapshot"
	MessageRefresh  = "refresh"
)

// StreamMessage is pushed to websocket subscribers.
type StreamMessage struct {
	Type      string              `json:"type"`
	Seq       int64               `json:"seq"`
	Time      int64               `json:"time"`
	Prices    []market.Instrument `json:"prices"`
	Regimes   market.Regimes      `json:"regimes"`
	Bulletins []news.Bulletin     `json:"bulletins,omitempty"`
}

func refreshMessage(ev marketview.RefreshEvent, bulletins []news.Bulletin) StreamMessage {
	return StreamMessage{
		Type:      MessageRefresh,
		Seq:       ev.Seq,
		Time:      ev.Time,
		Prices:    ev.Prices,
		Regimes:   ev.Regimes,
		Bulletins: bulletins,
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans stream messages out to websocket clients. Slow clients miss
// messages rather than stalling the broadcaster.
type Hub struct {
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	dropped atomic.Int64
	wg      sync.WaitGroup
}

// NewHub creates a Hub.
func NewHub(cfg Config, logger *zap.Logger) *Hub {
	return &Hub{
		cfg:    cfg.withDefaults(),
		logger: logging.OrNop(logger).Named("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and streams to it until the client goes away.
// initial, when non-nil, is sent before any broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial *StreamMessage) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.cfg.ClientBuffer),
		done: make(chan struct{}),
	}
	if initial != nil {
		if data, err := json.Marshal(initial); err == nil {
			c.send <- data
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", zap.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// readLoop discards inbound frames; it exists to process pongs and notice disconnects.
func (h *Hub) readLoop(c *client) {
	defer c.stop()

	pongWait := 2 * h.cfg.PingInterval
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	defer c.conn.Close()

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.cfg.WriteTimeout))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.stop()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				c.stop()
				return
			}
		}
	}
}

// Broadcast sends msg to every connected client.
func (h *Hub) Broadcast(msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode stream message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages slow clients missed.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close disconnects every client and waits for their writers to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.stop()
	}
	h.mu.Unlock()

	h.wg.Wait()
}

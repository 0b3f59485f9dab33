package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	xlogger "SignalDeck/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// StreamPath is where dashboard clients subscribe to view updates.
const StreamPath = "/api/stream"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	clientSendSize = 4
)

// StreamMessage is the frame pushed to every subscriber.
type StreamMessage struct {
	Type string                `json:"type"`
	View *models.DashboardView `json:"view"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// StreamHub pushes every refreshed view to connected WebSocket clients.
// New clients get the latest stored view right away.
type StreamHub struct {
	logger   *xlogger.Logger
	store    domrepo.ViewStore
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	closed  bool
}

func NewStreamHub(logger *xlogger.Logger, store domrepo.ViewStore) *StreamHub {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &StreamHub{
		logger: logger,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
}

func (h *StreamHub) RegisterRoutes(e *echo.Echo) {
	e.GET(StreamPath, h.Subscribe)
}

func (h *StreamHub) Name() string { return "websocket" }

// Clients returns the number of connected subscribers.
func (h *StreamHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver broadcasts v without its record list. Clients whose buffer is
// full are disconnected.
func (h *StreamHub) Deliver(ctx context.Context, v *models.DashboardView) error {
	payload, err := encodeStream(v)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("stream client too slow, dropping")
			delete(h.clients, c)
			c.close()
		}
	}
	return nil
}

func (h *StreamHub) Subscribe(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("stream upgrade failed", xlogger.Error(err))
		return nil
	}

	client := &streamClient{conn: conn, send: make(chan []byte, clientSendSize)}
	if v, lerr := h.store.Latest(c.Request().Context()); lerr == nil {
		if payload, eerr := encodeStream(v); eerr == nil {
			client.send <- payload
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("stream client connected", xlogger.String("remote", c.RealIP()))
	go h.writePump(client)
	h.readPump(client)
	return nil
}

// readPump drains client frames so control messages are processed, and
// unregisters the client once the connection drops.
func (h *StreamHub) readPump(c *streamClient) {
	defer h.remove(c)
	c.conn.SetReadLimit(512)
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

func (h *StreamHub) writePump(c *streamClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func (h *StreamHub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// Close disconnects every client and rejects new ones.
func (h *StreamHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	return nil
}

func encodeStream(v *models.DashboardView) ([]byte, error) {
	return json.Marshal(StreamMessage{Type: "view", View: v.WithoutRecords()})
}

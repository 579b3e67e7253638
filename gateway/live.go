package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/example/bakery/pkg/notify"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveBuffer     = 32
)

// LiveHub fans order events out to connected back-office websockets.
// It implements notify.LiveFeed.
type LiveHub struct {
	mu      sync.Mutex
	clients map[*liveClient]struct{}
	closed  bool
	logger  *zap.Logger
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewLiveHub(logger *zap.Logger) *LiveHub {
	return &LiveHub{
		clients: make(map[*liveClient]struct{}),
		logger:  logger,
	}
}

// Publish never blocks; a client too slow to keep up is disconnected.
func (h *LiveHub) Publish(event notify.LiveEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode live event", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			h.logger.Warn("Dropping slow live client", zap.String("remote", cl.conn.RemoteAddr().String()))
			h.removeLocked(cl)
		}
	}
}

func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *LiveHub) add(cl *liveClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *LiveHub) remove(cl *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(cl)
}

func (h *LiveHub) removeLocked(cl *liveClient) {
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// Close disconnects every client and refuses new ones.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		h.removeLocked(cl)
	}
}

func (g *Gateway) upgrader() websocket.Upgrader {
	allowed := make(map[string]bool, len(g.config.HTTP.AllowedOrigins))
	for _, o := range g.config.HTTP.AllowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed[origin]
		},
	}
}

// tokenFromQuery lets browser websockets, which cannot set headers, pass
// the access token as ?token=.
func tokenFromQuery(c *gin.Context) {
	if c.GetHeader("Authorization") == "" {
		if token := c.Query("token"); token != "" {
			c.Request.Header.Set("Authorization", "Bearer "+token)
		}
	}
	c.Next()
}

func (g *Gateway) liveOrders(c *gin.Context) {
	if g.deps.Live == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed is not enabled"})
		return
	}
	up := g.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client.
		g.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &liveClient{conn: conn, send: make(chan []byte, liveBuffer)}
	if !g.deps.Live.add(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(liveWriteWait))
		conn.Close()
		return
	}
	g.logger.Info("Live client connected", zap.String("remote", conn.RemoteAddr().String()))

	go g.deps.Live.writePump(cl)
	g.deps.Live.readPump(cl)
}

// readPump discards client messages and keeps the pong deadline fresh.
func (h *LiveHub) readPump(cl *liveClient) {
	defer func() {
		h.remove(cl)
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(livePongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Live client read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *LiveHub) writePump(cl *liveClient) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

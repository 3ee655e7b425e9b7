// Package ws carries the chat relay over a websocket: every "chat" frame the
// client sends is answered by exactly one "reply" frame.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ydkdan6/poly-com-ai/internal/api"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/metrics"
	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Frame types
const (
	TypeChat  = "chat"
	TypeReply = "reply"
	TypeError = "error"
)

// Inbound is a frame sent by the client
type Inbound struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Outbound is a frame sent by the server. Status mirrors the HTTP status the
// relay endpoint would have answered with.
type Outbound struct {
	Type    string      `json:"type"`
	Status  int         `json:"status,omitempty"`
	Content interface{} `json:"content"`
}

// Server upgrades connections and relays their frames
type Server struct {
	relay    api.Relayer
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewServer creates a websocket relay; an empty allowedOrigins or "*" accepts any origin
func NewServer(r api.Relayer, allowedOrigins []string, log *logger.Logger) *Server {
	s := &Server{
		relay:   r,
		log:     log,
		clients: make(map[*Client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:      originChecker(allowedOrigins),
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Client is one websocket connection
type Client struct {
	ID     string
	conn   *websocket.Conn
	send   chan Outbound
	server *Server
	log    *logger.Logger
}

// ServeWs upgrades the request and runs the client's pumps until the peer goes away
func (s *Server) ServeWs(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err.Error())
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		conn:   conn,
		send:   make(chan Outbound, 4),
		server: s,
		log:    logger.FromContext(c),
	}
	s.register(client)

	// the request context ends once the handler returns, so relays run on their own
	ctx, cancel := context.WithCancel(context.Background())
	go client.writePump(cancel)
	go client.readPump(ctx, cancel)
}

func (s *Server) register(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Debug("Websocket client connected", "client", c.ID)
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		close(c.send)
		s.log.Debug("Websocket client disconnected", "client", c.ID)
	}
}

// Count returns the number of connected clients
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}

// readPump handles frames one at a time, so a connection never has two relays in flight
func (c *Client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.server.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				if !c.push(ctx, Outbound{Type: TypeError, Content: "frames must be JSON"}) {
					return
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket read error", "client", c.ID, "error", err.Error())
			}
			return
		}

		if in.Type != TypeChat {
			if !c.push(ctx, Outbound{Type: TypeError, Content: "unsupported frame type: " + in.Type}) {
				return
			}
			continue
		}

		if !c.push(ctx, c.handleChat(ctx, in.Content)) {
			return
		}
	}
}

// push queues a frame for the writer; false means the writer is gone
func (c *Client) push(ctx context.Context, msg Outbound) bool {
	select {
	case c.send <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) handleChat(ctx context.Context, content json.RawMessage) Outbound {
	start := time.Now()

	var (
		resp   relay.Response
		status = http.StatusOK
	)

	var req relay.Request
	if err := json.Unmarshal(content, &req); err != nil {
		resp = api.FailureResponse(errors.New("Invalid request body"))
		status = http.StatusInternalServerError
	} else if out, err := c.server.relay.Relay(ctx, req); err != nil {
		resp = api.FailureResponse(err)
		status = http.StatusInternalServerError
	} else {
		resp = out
	}

	metrics.RelayRequests.WithLabelValues(api.Outcome(resp), "ws").Inc()
	metrics.RelayDuration.WithLabelValues("ws").Observe(time.Since(start).Seconds())
	return Outbound{Type: TypeReply, Status: status, Content: resp}
}

func (c *Client) writePump(cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Warn("Websocket write error", "client", c.ID, "error", err.Error())
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

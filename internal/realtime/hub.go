package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/liliang-cn/anonqa/internal/config"
	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/metrics"
	"go.uber.org/zap"
)

// Inbound message types
const (
	MessageJoinGroup  = "join_group"
	MessageLeaveGroup = "leave_group"
)

// InboundMessage is a client-to-server control message.
// Password is only read on join_group, for private groups.
type InboundMessage struct {
	Type     string `json:"type"`
	GroupID  string `json:"groupId"`
	Password string `json:"password,omitempty"`
}

// GroupAccess decides whether a connection may join a group's room.
// Events carry full question and answer content, so private rooms need the group password.
type GroupAccess interface {
	VerifyGroupAccess(ctx context.Context, id, password string) (*domain.Group, error)
}

// Hub accepts websocket connections and applies their join/leave requests to the registry.
// It is the only component that mutates room membership.
type Hub struct {
	registry *Registry
	access   GroupAccess
	upgrader websocket.Upgrader
	cfg      config.RealtimeConfig
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates a hub bound to registry. A nil access lets any connection join any room.
func NewHub(registry *Registry, access GroupAccess, cfg config.RealtimeConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}

	h := &Hub{
		registry: registry,
		access:   access,
		cfg:      cfg,
		logger:   logger,
		clients:  make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeWS upgrades the request and runs the connection until it closes
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(conn, h.cfg.SendBuffer, h.logger)
	if !h.add(client) {
		conn.Close()
		return
	}

	go client.writePump(h.cfg.WriteWait, h.cfg.PongWait*9/10)
	h.readPump(client)
}

// Close disconnects every client; used on server shutdown
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.disconnect(client)
	}
}

// Connections returns the number of open connections
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Registry returns the registry the hub manages
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) readPump(client *Client) {
	defer h.disconnect(client)

	conn := client.conn
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				client.logger.Debug("connection closed unexpectedly", zap.Error(err))
			}
			return
		}
		h.handleMessage(client, raw)
	}
}

func (h *Hub) handleMessage(client *Client, raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.logger.Debug("ignoring malformed message", zap.Error(err))
		h.reply(client, MessageError, gin.H{"error": "malformed message"})
		return
	}

	groupID := strings.TrimSpace(msg.GroupID)
	switch msg.Type {
	case MessageJoinGroup:
		if groupID == "" {
			h.reply(client, MessageError, gin.H{"error": "groupId is required"})
			return
		}
		// a refused join leaves the current membership as it was
		if reason := h.authorize(client, groupID, msg.Password); reason != "" {
			h.reply(client, MessageError, gin.H{"error": reason, "groupId": groupID})
			return
		}
		h.registry.Join(client, groupID)
		metrics.RoomJoins.Inc()
		h.reply(client, MessageGroupJoined, gin.H{"groupId": groupID})
	case MessageLeaveGroup:
		h.registry.Leave(client, groupID)
		h.reply(client, MessageGroupLeft, gin.H{"groupId": groupID})
	default:
		client.logger.Debug("ignoring unknown message type", zap.String("type", msg.Type))
	}
}

// authorize returns the refusal reason for a join, or "" when it is allowed
func (h *Hub) authorize(client *Client, groupID, password string) string {
	if h.access == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.WriteWait)
	defer cancel()

	_, err := h.access.VerifyGroupAccess(ctx, groupID, password)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrUnauthorized):
		return "group password required"
	case errors.Is(err, domain.ErrNotFound):
		return "group not found"
	default:
		client.logger.Warn("group access check failed", zap.String("group_id", groupID), zap.Error(err))
		return "failed to join group"
	}
}

func (h *Hub) reply(client *Client, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		return
	}
	client.Send(msg)
}

func (h *Hub) add(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = struct{}{}
	metrics.RealtimeConnections.Inc()
	return true
}

func (h *Hub) disconnect(client *Client) {
	h.registry.Disconnect(client)

	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		metrics.RealtimeConnections.Dec()
	}
	h.mu.Unlock()

	client.close()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.logger.Warn("rejected websocket origin", zap.String("origin", origin))
	return false
}

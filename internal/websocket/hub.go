package websocket

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"hiddengems-web/internal/middleware"
	"hiddengems-web/internal/models"
	"hiddengems-web/internal/worker"
)

// writeWait bounds a single socket write.
var writeWait = 10 * time.Second

// TokenParser resolves a session token to its session id.
type TokenParser interface {
	ParseToken(tokenStr string) (uuid.UUID, error)
}

type SessionLoader interface {
	Load(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
}

// Hub fans job progress out to every open socket of a session. Progress is
// published to Redis by the workers, so any gateway instance can serve the
// socket.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	tokens      TokenParser
	sessions    SessionLoader
	cancelFuncs map[uuid.UUID]context.CancelFunc

	allowedOrigin string
	upgrader      websocket.Upgrader
}

// NewHub only upgrades browser requests coming from allowedOrigin.
func NewHub(redisClient *redis.Client, tokens TokenParser, sessions SessionLoader, allowedOrigin string) *Hub {
	h := &Hub{
		connections:   make(map[uuid.UUID][]*websocket.Conn),
		redisClient:   redisClient,
		tokens:        tokens,
		sessions:      sessions,
		cancelFuncs:   make(map[uuid.UUID]context.CancelFunc),
		allowedOrigin: strings.TrimRight(allowedOrigin, "/"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin lets non-browser clients (no Origin header) through and holds
// browsers to the frontend's origin.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.EqualFold(strings.TrimRight(origin, "/"), h.allowedOrigin)
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// Token comes from the query string or the session cookie
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		if c, err := r.Cookie(middleware.SessionCookieName); err == nil {
			tokenStr = c.Value
		}
	}
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := h.tokens.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := h.sessions.Load(r.Context(), sessionID)
	if err != nil || session == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(sessionID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], conn)

	if len(h.connections[sessionID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	log.Printf("WebSocket connected: session %s (total: %d)", sessionID, len(h.connections[sessionID]))
}

func (h *Hub) unregisterConnection(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[sessionID]
	for i, c := range conns {
		if c == conn {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}

	log.Printf("WebSocket disconnected: session %s", sessionID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, worker.SessionChannel(sessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

// gorilla connections allow one concurrent writer; the write lock serializes
// broadcasts against each other. A socket that misses the write deadline is
// closed, and its reader goroutine unregisters it.
func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conn := range h.connections[sessionID] {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write failed: session %s: %v", sessionID, err)
			conn.Close()
		}
	}
}

// Connections reports how many sockets are open for a session.
func (h *Hub) Connections(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MinecAnton209/durak-online-sub001/internal/game"
)

// writeTimeout bounds one outbound frame; a stalled client loses its
// connection rather than the whole broadcast.
const writeTimeout = 5 * time.Second

// Hub maps player ids to their single live websocket. Sessions only know
// player ids; the hub turns an id into a write on the current socket.
type Hub struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*websocket.Conn
	log   *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{conns: make(map[uuid.UUID]*websocket.Conn), log: log}
}

// Bind registers the socket for a player, closing any previous one. One
// identity, one connection; the newest socket wins.
func (h *Hub) Bind(playerID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	prev := h.conns[playerID]
	h.conns[playerID] = conn
	h.mu.Unlock()

	if prev != nil && prev != conn {
		prev.Close(websocket.StatusPolicyViolation, "superseded by newer connection")
	}
}

// Unbind removes the socket if it is still the player's current one.
func (h *Hub) Unbind(playerID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[playerID] == conn {
		delete(h.conns, playerID)
	}
	h.mu.Unlock()
}

// IsCurrent reports whether conn is still the player's bound socket. A
// superseded connection must not act on the seat during its teardown.
func (h *Hub) IsCurrent(playerID uuid.UUID, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[playerID] == conn
}

// Send writes one event to the player's live socket, if any. Errors only
// log; delivery is best-effort and the session never blocks on a client.
func (h *Hub) Send(playerID uuid.UUID, ev game.Event) {
	h.mu.Lock()
	conn := h.conns[playerID]
	h.mu.Unlock()
	if conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, ev); err != nil {
		h.log.WithError(err).WithField("player", playerID).Debug("event delivery failed")
	}
}

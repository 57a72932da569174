package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MinecAnton209/durak-online-sub001/internal/auth"
	"github.com/MinecAnton209/durak-online-sub001/internal/game"
	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// UserSource resolves the persistent profile behind an authenticated id.
// Optional; without a store players play with their token identity alone.
type UserSource interface {
	GetOrCreateUser(ctx context.Context, id uuid.UUID, name string) (models.User, error)
}

// TimelineSource reads back a session's archived action history.
// Optional; without it the history endpoint answers 404.
type TimelineSource interface {
	Timeline(ctx context.Context, sessionID string) ([]game.ActionRecord, error)
}

// Handler owns the websocket endpoint and the small REST surface around
// it: guest login, lobby browsing, health.
type Handler struct {
	log      *logrus.Logger
	auth     *auth.Service
	registry *game.Registry
	hub      *Hub
	users    UserSource
	history  TimelineSource
	origins  []string
}

func NewHandler(log *logrus.Logger, authSvc *auth.Service, registry *game.Registry, hub *Hub, users UserSource, origins []string) *Handler {
	return &Handler{log: log, auth: authSvc, registry: registry, hub: hub, users: users, origins: origins}
}

// SetHistory wires the optional action-history reader.
func (h *Handler) SetHistory(src TimelineSource) {
	h.history = src
}

// Register mounts the routes on the gin engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/auth/guest", h.GuestLogin)
	r.GET("/games", h.ListGames)
	r.GET("/games/:id/history", h.GameHistory)
	r.GET("/ws", h.Serve)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GuestLogin mints an identity token. An existing playerId in the request
// keeps the identity stable across token refreshes.
func (h *Handler) GuestLogin(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		PlayerID string `json:"playerId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_required"})
		return
	}
	id := uuid.New()
	if req.PlayerID != "" {
		parsed, err := uuid.Parse(req.PlayerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_player_id"})
			return
		}
		id = parsed
	}
	token, err := h.auth.Issue(id, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "playerId": id.String(), "name": req.Name})
}

// ListGames returns browsable public lobbies, optionally narrowed by
// deckSize and maxBet query parameters.
func (h *Handler) ListGames(c *gin.Context) {
	var filter game.ListFilter
	if v := c.Query("deckSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_deck_size"})
			return
		}
		filter.DeckSize = n
	}
	if v := c.Query("maxBet"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_max_bet"})
			return
		}
		filter.MaxBet = n
	}
	c.JSON(http.StatusOK, gin.H{"games": h.registry.ListPublic(filter)})
}

// GameHistory returns a session's archived action timeline.
func (h *Handler) GameHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history_unavailable"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_game_id"})
		return
	}
	timeline, err := h.history.Timeline(c.Request.Context(), id.String())
	if err != nil {
		h.log.WithError(err).WithField("session", id).Error("timeline read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_read_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": timeline})
}

// Serve upgrades the connection and runs its read loop until the socket
// drops. Authentication happens before the upgrade; an invalid token never
// reaches a session.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	claims, err := h.auth.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	user := h.resolveUser(c.Request.Context(), claims)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	h.hub.Bind(user.ID, conn)
	defer h.hub.Unbind(user.ID, conn)

	log := h.log.WithFields(logrus.Fields{"player": user.ID, "name": user.Name})
	log.Info("websocket connected")

	// A returning identity reclaims its seat before the first frame.
	if s, ok := h.registry.FindByPlayer(user.ID); ok {
		if err := s.HandleReconnect(user.ID); err != nil {
			log.WithError(err).Debug("seat resume failed")
		}
	}

	ctx := c.Request.Context()
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			break
		}
		h.dispatch(user, msg)
	}

	log.Info("websocket disconnected")
	// A superseded socket must not push the seat into grace; the newer
	// connection already owns it.
	if s, ok := h.registry.FindByPlayer(user.ID); ok && h.hub.IsCurrent(user.ID, conn) {
		s.HandleDisconnect(user.ID)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) resolveUser(ctx context.Context, claims *auth.Claims) models.User {
	user := models.User{ID: claims.PlayerID, Name: claims.Name}
	if h.users == nil {
		return user
	}
	lookupCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	stored, err := h.users.GetOrCreateUser(lookupCtx, claims.PlayerID, claims.Name)
	if err != nil {
		h.log.WithError(err).WithField("player", claims.PlayerID).Warn("profile lookup failed, using token identity")
		return user
	}
	return stored
}

// dispatch routes one validated frame. Rejections go back to the sender
// only; accepted actions broadcast through the session itself.
func (h *Handler) dispatch(user models.User, msg ClientMessage) {
	if err := msg.Validate(); err != nil {
		h.sendError(user.ID, game.EventError, msg, err.Error())
		return
	}

	switch msg.Type {
	case MsgCreateLobby:
		h.createLobby(user, msg)
		return
	case MsgJoinLobby:
		h.joinLobby(user, msg)
		return
	}

	s, ok := h.registry.FindByPlayer(user.ID)
	if !ok {
		h.sendError(user.ID, game.EventError, msg, "not_in_game")
		return
	}

	var err error
	switch msg.Type {
	case MsgGetLobbyState:
		err = s.SendStateTo(user.ID)
	case MsgUpdateSettings:
		err = s.UpdateSettings(user.ID, *msg.Settings)
	case MsgForceStart:
		err = s.ForceStart(user.ID)
	case MsgMakeMove:
		err = s.Move(user.ID, *msg.Card)
	case MsgTakeCards:
		err = s.Take(user.ID)
	case MsgPassTurn:
		err = s.PassTurn(user.ID)
	case MsgRequestRematch:
		err = s.VoteRematch(user.ID)
	case MsgSendMessage:
		err = s.Chat(user.ID, msg.Key, msg.Options)
	case MsgMusicSync:
		err = s.SetMusic(user.ID, *msg.Music)
	case MsgLeaveLobby:
		err = s.Leave(user.ID)
	}
	if err != nil {
		h.sendError(user.ID, rejectionKind(msg.Type), msg, game.Reason(err))
	}
}

func (h *Handler) createLobby(user models.User, msg ClientMessage) {
	if _, ok := h.registry.FindByPlayer(user.ID); ok {
		h.sendError(user.ID, game.EventError, msg, "already_in_game")
		return
	}
	settings := models.Settings{}
	if msg.Settings != nil {
		settings = *msg.Settings
	}
	s, err := h.registry.Create(user, settings)
	if err != nil {
		h.sendError(user.ID, game.EventError, msg, game.Reason(err))
		return
	}
	h.hub.Send(user.ID, game.Event{Type: game.EventLobbyCreated, GameID: s.ID.String(), PlayerID: user.ID.String()})
	_ = s.SendStateTo(user.ID)
}

func (h *Handler) joinLobby(user models.User, msg ClientMessage) {
	if existing, ok := h.registry.FindByPlayer(user.ID); ok {
		// Rejoining the same table is a resume; a different one is refused.
		if existing.ID.String() == msg.GameID {
			if err := existing.HandleReconnect(user.ID); err != nil {
				h.sendError(user.ID, game.EventError, msg, game.Reason(err))
			}
			return
		}
		h.sendError(user.ID, game.EventError, msg, "already_in_game")
		return
	}

	var s *game.Session
	var ok bool
	if msg.InviteCode != "" {
		s, ok = h.registry.GetByInvite(msg.InviteCode)
	} else {
		id, err := uuid.Parse(msg.GameID)
		if err != nil {
			h.sendError(user.ID, game.EventError, msg, "bad_game_id")
			return
		}
		s, ok = h.registry.Get(id)
	}
	if !ok {
		h.sendError(user.ID, game.EventError, msg, "game_not_found")
		return
	}
	if err := s.Join(user); err != nil {
		h.sendError(user.ID, game.EventError, msg, game.Reason(err))
	}
}

// rejectionKind separates gameplay rejections, which clients surface as
// move feedback, from protocol-level errors.
func rejectionKind(t MessageType) game.EventType {
	switch t {
	case MsgMakeMove, MsgTakeCards, MsgPassTurn:
		return game.EventInvalidMove
	default:
		return game.EventError
	}
}

func (h *Handler) sendError(playerID uuid.UUID, kind game.EventType, msg ClientMessage, reason string) {
	h.hub.Send(playerID, game.Event{Type: kind, GameID: msg.GameID, Reason: reason})
}

package game

import (
	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// EventType enumerates the server→client event kinds. The set is closed;
// clients must ignore types they do not know.
type EventType string

const (
	EventLobbyCreated  EventType = "lobby_created"
	EventJoinSuccess   EventType = "join_success"
	EventLobbyState    EventType = "lobby_state"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventGameState     EventType = "game_state"
	EventInvalidMove   EventType = "invalid_move"
	EventRematchUpdate EventType = "rematch_update"
	EventLogEntry      EventType = "log_entry"
	EventMusicSync     EventType = "music_sync"
	EventGameOver      EventType = "game_over"
	EventError         EventType = "error"
)

// RematchInfo reports rematch vote progress against the currently
// connected seat count.
type RematchInfo struct {
	Votes int `json:"votes"`
	Total int `json:"total"`
}

// PlayerInfo identifies a player within an event payload.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is the single outbound frame shape. Exactly the fields relevant to
// Type are populated; everything else stays omitted on the wire.
type Event struct {
	Type     EventType          `json:"type"`
	GameID   string             `json:"gameId,omitempty"`
	PlayerID string             `json:"playerId,omitempty"`
	Player   *PlayerInfo        `json:"player,omitempty"`
	Reason   string             `json:"reason,omitempty"`
	State    *SessionView       `json:"state,omitempty"`
	Rematch  *RematchInfo       `json:"rematch,omitempty"`
	Log      *models.LogEntry   `json:"log,omitempty"`
	Music    *models.MusicState `json:"music,omitempty"`
	Result   *ResultView        `json:"result,omitempty"`
}

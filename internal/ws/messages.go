package ws

import (
	"errors"

	"github.com/MinecAnton209/durak-online-sub001/engine"
	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// MessageType tags an inbound client message. The set is closed; anything
// else is a protocol error and the message is rejected without touching
// session state.
type MessageType string

const (
	MsgCreateLobby    MessageType = "create_lobby"
	MsgJoinLobby      MessageType = "join_lobby"
	MsgGetLobbyState  MessageType = "get_lobby_state"
	MsgUpdateSettings MessageType = "update_settings"
	MsgForceStart     MessageType = "force_start"
	MsgMakeMove       MessageType = "make_move"
	MsgTakeCards      MessageType = "take_cards"
	MsgPassTurn       MessageType = "pass_turn"
	MsgRequestRematch MessageType = "request_rematch"
	MsgSendMessage    MessageType = "send_message"
	MsgMusicSync      MessageType = "music_sync"
	MsgLeaveLobby     MessageType = "leave_lobby"
)

var (
	ErrUnknownType = errors.New("unknown_message_type")
	ErrBadPayload  = errors.New("bad_payload")
)

// ClientMessage is the inbound frame. One struct covers the whole union;
// Validate checks that the fields the tagged kind needs are present.
type ClientMessage struct {
	Type       MessageType        `json:"type"`
	GameID     string             `json:"gameId,omitempty"`
	InviteCode string             `json:"inviteCode,omitempty"`
	Settings   *models.Settings   `json:"settings,omitempty"`
	Card       *engine.Card       `json:"card,omitempty"`
	Key        string             `json:"key,omitempty"`
	Options    map[string]any     `json:"options,omitempty"`
	Music      *models.MusicState `json:"music,omitempty"`
}

// Validate rejects frames whose kind is unknown or whose required payload
// is missing. Field values themselves are judged later by the session.
func (m ClientMessage) Validate() error {
	switch m.Type {
	case MsgCreateLobby:
		// Settings are optional; defaults apply.
		return nil
	case MsgJoinLobby:
		if m.GameID == "" && m.InviteCode == "" {
			return ErrBadPayload
		}
		return nil
	case MsgUpdateSettings:
		if m.Settings == nil {
			return ErrBadPayload
		}
		return nil
	case MsgMakeMove:
		if m.Card == nil {
			return ErrBadPayload
		}
		return nil
	case MsgSendMessage:
		if m.Key == "" {
			return ErrBadPayload
		}
		return nil
	case MsgMusicSync:
		if m.Music == nil {
			return ErrBadPayload
		}
		return nil
	case MsgGetLobbyState, MsgForceStart, MsgTakeCards, MsgPassTurn,
		MsgRequestRematch, MsgLeaveLobby:
		return nil
	default:
		return ErrUnknownType
	}
}

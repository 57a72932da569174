// Package models holds the data types shared between the game, transport
// and storage layers.
package models

import (
	"errors"

	"github.com/google/uuid"

	"github.com/MinecAnton209/durak-online-sub001/engine"
)

// ErrBadBet rejects a negative bet amount at lobby creation.
var ErrBadBet = errors.New("bad_bet")

// User is the stable player identity behind an ephemeral connection.
// The reconnection window is matched on User.ID, never on the socket.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Coins int64     `json:"coins"`
}

// Settings is the table configuration fixed by the host in the lobby.
type Settings struct {
	DeckSize   int    `json:"deckSize"`   // 36 or 52
	MaxPlayers int    `json:"maxPlayers"` // 2–6
	Private    bool   `json:"private"`
	InviteCode string `json:"inviteCode,omitempty"`
	Bet        int64  `json:"bet"`
}

// Normalize fills zero values with the defaults.
func (s *Settings) Normalize() {
	if s.DeckSize == 0 {
		s.DeckSize = int(engine.Deck36)
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = 2
	}
}

// Validate rejects settings the engine cannot honor. Capacity is enforced
// here, at lobby creation, so a deal can never come up short later.
func (s Settings) Validate() error {
	if s.Bet < 0 {
		return ErrBadBet
	}
	return engine.Config{DeckSize: engine.DeckSize(s.DeckSize), Seats: s.MaxPlayers}.Validate()
}

// LogEntry is one chat/system line in a session's bounded log. Key is an
// opaque i18n key resolved client-side; the server never stores literal
// display strings.
type LogEntry struct {
	Key     string         `json:"key"`
	Options map[string]any `json:"options,omitempty"`
	From    string         `json:"from,omitempty"`
	At      int64          `json:"at"` // unix millis
}

// MusicState is the shared listen-along state of a table. Peripheral to
// gameplay; owned by the session, set by the host only.
type MusicState struct {
	TrackID   string  `json:"trackId"`
	Playing   bool    `json:"playing"`
	Position  float64 `json:"position"` // seconds into the track
	UpdatedAt int64   `json:"updatedAt"`
}

// MatchResult is the post-game summary handed to the collaborator store:
// coin deltas per player plus the final standing.
type MatchResult struct {
	SessionID uuid.UUID           `json:"sessionId"`
	Bet       int64               `json:"bet"`
	Winners   []uuid.UUID         `json:"winners"`
	Loser     *uuid.UUID          `json:"loser,omitempty"`
	Draw      bool                `json:"draw"`
	Deltas    map[uuid.UUID]int64 `json:"deltas"`
}

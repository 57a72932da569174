package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MinecAnton209/durak-online-sub001/engine"
)

func decode(t *testing.T, raw string) ClientMessage {
	t.Helper()
	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return msg
}

func TestDecodeTaggedUnion(t *testing.T) {
	msg := decode(t, `{"type":"make_move","card":{"suit":"♠","rank":"10"}}`)
	require.NoError(t, msg.Validate())
	assert.Equal(t, MsgMakeMove, msg.Type)
	assert.Equal(t, engine.Spades, msg.Card.Suit)
	assert.Equal(t, engine.Rank(10), msg.Card.Rank)

	msg = decode(t, `{"type":"create_lobby","settings":{"deckSize":52,"maxPlayers":4,"private":true,"bet":100}}`)
	require.NoError(t, msg.Validate())
	assert.Equal(t, 52, msg.Settings.DeckSize)
	assert.True(t, msg.Settings.Private)

	msg = decode(t, `{"type":"join_lobby","inviteCode":"ABC234"}`)
	require.NoError(t, msg.Validate())

	msg = decode(t, `{"type":"send_message","key":"chat.message","options":{"text":"gg"}}`)
	require.NoError(t, msg.Validate())
	assert.Equal(t, "gg", msg.Options["text"])
}

func TestValidateRejectsUnknownAndMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"unknown kind", `{"type":"teleport"}`, ErrUnknownType},
		{"empty kind", `{}`, ErrUnknownType},
		{"move without card", `{"type":"make_move"}`, ErrBadPayload},
		{"join without target", `{"type":"join_lobby"}`, ErrBadPayload},
		{"settings update without settings", `{"type":"update_settings"}`, ErrBadPayload},
		{"chat without key", `{"type":"send_message"}`, ErrBadPayload},
		{"music without state", `{"type":"music_sync"}`, ErrBadPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, decode(t, tc.raw).Validate(), tc.want)
		})
	}
}

func TestBareActionsNeedNoPayload(t *testing.T) {
	for _, kind := range []MessageType{
		MsgGetLobbyState, MsgForceStart, MsgTakeCards, MsgPassTurn,
		MsgRequestRematch, MsgLeaveLobby,
	} {
		assert.NoError(t, ClientMessage{Type: kind}.Validate(), string(kind))
	}
}

func TestRejectionKind(t *testing.T) {
	assert.Equal(t, "invalid_move", string(rejectionKind(MsgMakeMove)))
	assert.Equal(t, "invalid_move", string(rejectionKind(MsgTakeCards)))
	assert.Equal(t, "invalid_move", string(rejectionKind(MsgPassTurn)))
	assert.Equal(t, "error", string(rejectionKind(MsgForceStart)))
	assert.Equal(t, "error", string(rejectionKind(MsgJoinLobby)))
}

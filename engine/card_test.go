package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeats(t *testing.T) {
	trump := Clubs
	attack := Card{Suit: Spades, Rank: 8}

	assert.True(t, Card{Suit: Spades, Rank: 10}.Beats(attack, trump), "same suit, higher rank")
	assert.False(t, Card{Suit: Spades, Rank: 7}.Beats(attack, trump), "same suit, lower rank")
	assert.False(t, Card{Suit: Spades, Rank: 8}.Beats(attack, trump), "equal rank never beats")
	assert.False(t, Card{Suit: Hearts, Rank: RankKing}.Beats(attack, trump), "off-suit non-trump")
	assert.True(t, Card{Suit: Clubs, Rank: 6}.Beats(attack, trump), "any trump beats non-trump")
	assert.False(t, Card{Suit: Hearts, Rank: RankAce}.Beats(Card{Suit: Clubs, Rank: 6}, trump),
		"non-trump never beats trump")
	assert.True(t, Card{Suit: Clubs, Rank: 9}.Beats(Card{Suit: Clubs, Rank: 6}, trump),
		"trump vs trump compares rank")
}

func TestCardJSONRoundTrip(t *testing.T) {
	c := Card{Suit: Diamonds, Rank: RankQueen}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"suit":"♦","rank":"Q"}`, string(raw))

	var back Card
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, c, back)

	var named Card
	require.NoError(t, json.Unmarshal([]byte(`{"suit":"spades","rank":"10"}`), &named))
	assert.Equal(t, Card{Suit: Spades, Rank: 10}, named)

	assert.Error(t, json.Unmarshal([]byte(`{"suit":"x","rank":"10"}`), &named))
	assert.Error(t, json.Unmarshal([]byte(`{"suit":"♠","rank":"11"}`), &named))
}

// Package engine implements the Podkidnoy Durak card game rules.
//
// The package is pure: it owns the card/deck model, the table (trick) state
// and every legality check, but performs no I/O, reads no clock and keeps no
// logger. The service layer drives it and translates its errors into wire
// events.
package engine

import (
	"encoding/json"
	"fmt"
)

// Suit identifies one of the four French suits.
type Suit uint8

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the suit symbol.
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	}
	return "?"
}

// Rank is the card rank. Values mirror the card face: 2–10 for pip cards,
// 11–14 for Jack, Queen, King, Ace. The 36-card deck uses 6 and up.
type Rank uint8

const (
	RankTwo   Rank = 2
	RankSix   Rank = 6
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
)

// String returns the rank face ("6".."10", "J", "Q", "K", "A").
func (r Rank) String() string {
	switch r {
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankAce:
		return "A"
	default:
		return fmt.Sprintf("%d", uint8(r))
	}
}

// Card is an immutable card value. Comparison across suits is only
// meaningful when one side is trump; see Beats.
type Card struct {
	Suit Suit
	Rank Rank
}

// Beats reports whether c, played as a defense, beats target: same suit and
// strictly higher rank, or c is trump while target is not.
func (c Card) Beats(target Card, trump Suit) bool {
	if c.Suit == target.Suit {
		return c.Rank > target.Rank
	}
	return c.Suit == trump
}

// IsTrump reports whether the card belongs to the trump suit.
func (c Card) IsTrump(trump Suit) bool { return c.Suit == trump }

func (c Card) String() string { return c.Rank.String() + c.Suit.String() }

type cardJSON struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// MarshalJSON encodes the card as {"suit":"♠","rank":"10"}.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Suit: c.Suit.String(), Rank: c.Rank.String()})
}

// UnmarshalJSON accepts suit symbols or English names and rank faces.
func (c *Card) UnmarshalJSON(data []byte) error {
	var cj cardJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}

	switch cj.Suit {
	case "♠", "s", "S", "spades", "Spades":
		c.Suit = Spades
	case "♥", "h", "H", "hearts", "Hearts":
		c.Suit = Hearts
	case "♦", "d", "D", "diamonds", "Diamonds":
		c.Suit = Diamonds
	case "♣", "c", "C", "clubs", "Clubs":
		c.Suit = Clubs
	default:
		return fmt.Errorf("invalid suit: %s", cj.Suit)
	}

	switch cj.Rank {
	case "2", "3", "4", "5", "6", "7", "8", "9", "10":
		var n int
		fmt.Sscanf(cj.Rank, "%d", &n)
		c.Rank = Rank(n)
	case "J", "j":
		c.Rank = RankJack
	case "Q", "q":
		c.Rank = RankQueen
	case "K", "k":
		c.Rank = RankKing
	case "A", "a":
		c.Rank = RankAce
	default:
		return fmt.Errorf("invalid rank: %s", cj.Rank)
	}
	return nil
}

package engine

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
)

// DeckSize selects the deck composition: 36 cards (6 through Ace) or the
// full 52-card deck (2 through Ace).
type DeckSize int

const (
	Deck36 DeckSize = 36
	Deck52 DeckSize = 52
)

// Valid reports whether the size is one of the two supported compositions.
func (s DeckSize) Valid() bool { return s == Deck36 || s == Deck52 }

// lowestRank returns the lowest rank present in a deck of this size.
func (s DeckSize) lowestRank() Rank {
	if s == Deck52 {
		return RankTwo
	}
	return RankSix
}

// Deck is the draw pile plus the exposed trump card. The trump card is
// physically last: Draw never returns it while any other card remains, so
// the trump suit stays inferable for the whole session.
type Deck struct {
	cards      []Card
	trump      Card
	trumpDrawn bool
	dealt      bool
}

// BuildDeck constructs an ordered, unshuffled deck of the given size.
func BuildDeck(size DeckSize) (*Deck, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("unsupported deck size %d", int(size))
	}
	d := &Deck{cards: make([]Card, 0, int(size))}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := size.lowestRank(); rank <= RankAce; rank++ {
			d.cards = append(d.cards, Card{Suit: suit, Rank: rank})
		}
	}
	return d, nil
}

// Shuffle produces a uniformly random permutation of the draw pile using a
// Fisher-Yates walk seeded from crypto/rand. Real stakes ride on the deal,
// so a predictable clock-based source is not acceptable here.
func (d *Deck) Shuffle() error {
	for i := len(d.cards) - 1; i > 0; i-- {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("shuffle: %w", err)
		}
		j := int(n.Int64())
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return nil
}

// DealInitial deals handSize cards to each of seats hands in rotation order
// and exposes the next card as the trump. The caller must have validated
// capacity at session-creation time; DealInitial re-checks and rejects
// rather than dealing a short hand.
func (d *Deck) DealInitial(seats, handSize int) ([][]Card, error) {
	if need := seats*handSize + 1; need > len(d.cards) {
		return nil, fmt.Errorf("deck of %d cannot seat %d players: need %d cards", len(d.cards), seats, need)
	}
	hands := make([][]Card, seats)
	for i := range hands {
		hands[i] = make([]Card, 0, handSize)
	}
	for c := 0; c < handSize; c++ {
		for p := 0; p < seats; p++ {
			last := len(d.cards) - 1
			hands[p] = append(hands[p], d.cards[last])
			d.cards = d.cards[:last]
		}
	}
	// Expose the trump and move it under the pile.
	last := len(d.cards) - 1
	d.trump = d.cards[last]
	d.cards = d.cards[:last]
	d.dealt = true
	return hands, nil
}

// Draw removes and returns the next card. The exposed trump card is drawn
// only once the rest of the pile is exhausted. Returns false when empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) > 0 {
		last := len(d.cards) - 1
		c := d.cards[last]
		d.cards = d.cards[:last]
		return c, true
	}
	if d.dealt && !d.trumpDrawn {
		d.trumpDrawn = true
		return d.trump, true
	}
	return Card{}, false
}

// Remaining counts undealt cards, including the exposed trump.
func (d *Deck) Remaining() int {
	n := len(d.cards)
	if d.dealt && !d.trumpDrawn {
		n++
	}
	return n
}

// Trump returns the exposed trump card. Only meaningful after DealInitial.
func (d *Deck) Trump() Card { return d.trump }

// TrumpSuit returns the suit fixed for the session.
func (d *Deck) TrumpSuit() Suit { return d.trump.Suit }

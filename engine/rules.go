package engine

const (
	// HandSize is the number of cards dealt to each seat and the level
	// hands refill to between tricks while the deck lasts.
	HandSize = 6

	// MaxAttacksPerTrick caps the attack cards a single trick can carry.
	MaxAttacksPerTrick = 6

	MinSeats = 2
	MaxSeats = 6
)

// Config holds the rule parameters fixed at session creation.
type Config struct {
	DeckSize DeckSize
	Seats    int
}

// Validate rejects configurations the deal cannot satisfy. Capacity is
// checked here, at creation time, never at deal time.
func (c Config) Validate() error {
	if !c.DeckSize.Valid() {
		return &RuleError{Code: "bad_deck_size"}
	}
	if c.Seats < MinSeats || c.Seats > MaxSeats {
		return &RuleError{Code: "bad_seat_count"}
	}
	if c.Seats*HandSize+1 > int(c.DeckSize) {
		return &RuleError{Code: "deck_too_small"}
	}
	return nil
}

package engine

// RuleError is a rejected action. Code is a stable, client-facing reason
// identifier; an action that returns a RuleError has not mutated any state.
type RuleError struct {
	Code string
}

func (e *RuleError) Error() string { return e.Code }

var (
	ErrGameOver           = &RuleError{Code: "game_over"}
	ErrNotDealt           = &RuleError{Code: "not_dealt"}
	ErrAlreadyDealt       = &RuleError{Code: "already_dealt"}
	ErrNothingToDefend    = &RuleError{Code: "nothing_to_defend"}
	ErrWrongTurn          = &RuleError{Code: "wrong_turn"}
	ErrSeatOut            = &RuleError{Code: "seat_out"}
	ErrCardNotInHand      = &RuleError{Code: "card_not_in_hand"}
	ErrRankNotOnTable     = &RuleError{Code: "rank_not_on_table"}
	ErrDefenderOverloaded = &RuleError{Code: "defender_overloaded"}
	ErrAttackLimit        = &RuleError{Code: "attack_limit"}
	ErrCannotBeat         = &RuleError{Code: "cannot_beat_card"}
	ErrNothingToTake      = &RuleError{Code: "nothing_to_take"}
	ErrEmptyTable         = &RuleError{Code: "empty_table"}
	ErrTableUndefended    = &RuleError{Code: "table_undefended"}
)

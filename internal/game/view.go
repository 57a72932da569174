package game

import (
	"github.com/google/uuid"

	"github.com/MinecAnton209/durak-online-sub001/engine"
	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// TableSlotView is one attack card and, when beaten, the card covering it.
type TableSlotView struct {
	Attack  engine.Card  `json:"attack"`
	Defense *engine.Card `json:"defense,omitempty"`
}

// SeatView is a seat as one particular observer sees it. Hand is populated
// only for the observer's own seat; everyone else gets a count.
type SeatView struct {
	PlayerID    string        `json:"playerId"`
	Name        string        `json:"name"`
	Host        bool          `json:"host"`
	Status      string        `json:"status"`
	Role        string        `json:"role,omitempty"`
	HandCount   int           `json:"handCount"`
	Hand        []engine.Card `json:"hand,omitempty"`
	RematchVote bool          `json:"rematchVote,omitempty"`
}

// ResultView is the public final standing.
type ResultView struct {
	Winners []string `json:"winners"`
	Loser   string   `json:"loser,omitempty"`
	Draw    bool     `json:"draw"`
}

// SessionView is the filtered snapshot pushed to a seat after every
// canonical mutation. Trump, table, deck count, turn flags and the result
// are public; only the observer's own hand carries card faces.
type SessionView struct {
	GameID       string             `json:"gameId"`
	Phase        Phase              `json:"phase"`
	Settings     models.Settings    `json:"settings"`
	Seats        []SeatView         `json:"seats"`
	Trump        *engine.Card       `json:"trump,omitempty"`
	DeckCount    int                `json:"deckCount"`
	DiscardCount int                `json:"discardCount"`
	Table        []TableSlotView    `json:"table,omitempty"`
	AttackerID   string             `json:"attackerId,omitempty"`
	DefenderID   string             `json:"defenderId,omitempty"`
	Result       *ResultView        `json:"result,omitempty"`
	Music        *models.MusicState `json:"music,omitempty"`
	Log          []models.LogEntry  `json:"log,omitempty"`
}

// viewForLocked projects the canonical state for one observer. Assumes the
// session lock is held.
func (s *Session) viewForLocked(forPlayer uuid.UUID) *SessionView {
	v := &SessionView{
		GameID:   s.ID.String(),
		Phase:    s.phase,
		Settings: s.settings,
		Seats:    make([]SeatView, len(s.seats)),
	}
	if len(s.chat) > 0 {
		v.Log = append([]models.LogEntry(nil), s.chat...)
	}
	if s.music.TrackID != "" {
		m := s.music
		v.Music = &m
	}

	for i, seat := range s.seats {
		sv := SeatView{
			PlayerID:    seat.User.ID.String(),
			Name:        seat.User.Name,
			Host:        seat.Host,
			Status:      seat.Status.String(),
			RematchVote: seat.RematchVote,
		}
		if s.eng != nil {
			sv.Role = s.eng.RoleOf(seat.Index).String()
			hand := s.eng.HandOf(seat.Index)
			sv.HandCount = len(hand)
			if seat.User.ID == forPlayer {
				sv.Hand = append([]engine.Card(nil), hand...)
			}
		}
		v.Seats[i] = sv
	}

	if s.eng != nil && s.eng.Dealt() {
		trump := s.eng.TrumpCard()
		v.Trump = &trump
		v.DeckCount = s.eng.DeckCount()
		v.DiscardCount = s.eng.DiscardCount()
		for _, slot := range s.eng.Table.Slots {
			tv := TableSlotView{Attack: slot.Attack}
			if slot.Defended {
				d := slot.Defense
				tv.Defense = &d
			}
			v.Table = append(v.Table, tv)
		}
		if !s.eng.Over() {
			v.AttackerID = s.seats[s.eng.Attacker()].User.ID.String()
			v.DefenderID = s.seats[s.eng.Defender()].User.ID.String()
		}
	}
	v.Result = s.resultViewLocked()
	return v
}

// resultViewLocked builds the public result, nil while the game runs.
func (s *Session) resultViewLocked() *ResultView {
	if s.result == nil {
		return nil
	}
	rv := &ResultView{Draw: s.result.Draw}
	for _, w := range s.result.Winners {
		rv.Winners = append(rv.Winners, w.String())
	}
	if s.result.Loser != nil {
		rv.Loser = s.result.Loser.String()
	}
	return rv
}

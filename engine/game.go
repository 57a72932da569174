package engine

// Role tags a seat's part in the current trick.
type Role uint8

const (
	RoleIdle Role = iota
	RoleAttacker
	RoleDefender
	RoleHelper
	RoleOut
)

func (r Role) String() string {
	switch r {
	case RoleAttacker:
		return "attacker"
	case RoleDefender:
		return "defender"
	case RoleHelper:
		return "helper"
	case RoleOut:
		return "out"
	}
	return "idle"
}

// Game holds the authoritative gameplay state for one table: hands, draw
// pile, trick and rotation. Every action validates fully before mutating,
// so a rejected action never leaves partial state behind.
type Game struct {
	cfg   Config
	deck  *Deck
	trump Suit

	hands   [][]Card
	Table   Table
	discard []Card

	attacker int
	defender int

	out       []bool
	forfeited []bool
	winners   []int
	loser     int
	over      bool
	dealt     bool
}

// NewGame validates the config and builds the (unshuffled, undealt) game.
func NewGame(cfg Config) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deck, err := BuildDeck(cfg.DeckSize)
	if err != nil {
		return nil, err
	}
	g := &Game{
		cfg:       cfg,
		deck:      deck,
		hands:     make([][]Card, cfg.Seats),
		out:       make([]bool, cfg.Seats),
		forfeited: make([]bool, cfg.Seats),
		loser:     -1,
	}
	return g, nil
}

// Deal shuffles, deals the initial hands, fixes the trump suit and picks the
// first attacker: the seat holding the lowest trump-suit card, seat 0 when
// no hand holds a trump. The defender is the next seat clockwise.
func (g *Game) Deal() error {
	if g.dealt {
		return ErrAlreadyDealt
	}
	if err := g.deck.Shuffle(); err != nil {
		return err
	}
	hands, err := g.deck.DealInitial(g.cfg.Seats, HandSize)
	if err != nil {
		return err
	}
	g.hands = hands
	g.trump = g.deck.TrumpSuit()
	g.dealt = true

	g.attacker = g.firstAttacker()
	g.defender = g.nextActive(g.attacker)
	return nil
}

func (g *Game) firstAttacker() int {
	best := -1
	var bestRank Rank
	for seat, hand := range g.hands {
		for _, c := range hand {
			if c.Suit == g.trump && (best == -1 || c.Rank < bestRank) {
				best = seat
				bestRank = c.Rank
			}
		}
	}
	if best == -1 {
		return 0
	}
	return best
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (g *Game) Seats() int        { return g.cfg.Seats }
func (g *Game) Dealt() bool       { return g.dealt }
func (g *Game) Over() bool        { return g.over }
func (g *Game) Attacker() int     { return g.attacker }
func (g *Game) Defender() int     { return g.defender }
func (g *Game) TrumpSuit() Suit   { return g.trump }
func (g *Game) TrumpCard() Card   { return g.deck.Trump() }
func (g *Game) DeckCount() int    { return g.deck.Remaining() }
func (g *Game) DiscardCount() int { return len(g.discard) }
func (g *Game) IsOut(seat int) bool {
	return seat >= 0 && seat < g.cfg.Seats && g.out[seat]
}

// HandOf returns the seat's hand. Callers must not mutate it.
func (g *Game) HandOf(seat int) []Card { return g.hands[seat] }

// Winners returns seat indexes in the order they emptied their hands.
func (g *Game) Winners() []int { return g.winners }

// Loser returns the durak's seat index, or -1 for a draw or unfinished game.
func (g *Game) Loser() int { return g.loser }

// IsDraw reports a finished game with no loser.
func (g *Game) IsDraw() bool { return g.over && g.loser == -1 }

// RoleOf returns the seat's current role. With more than two seats, every
// active seat that is neither attacker nor defender may help the attack.
func (g *Game) RoleOf(seat int) Role {
	switch {
	case seat < 0 || seat >= g.cfg.Seats:
		return RoleIdle
	case g.out[seat]:
		return RoleOut
	case g.over || !g.dealt:
		return RoleIdle
	case seat == g.attacker:
		return RoleAttacker
	case seat == g.defender:
		return RoleDefender
	case g.cfg.Seats > 2:
		return RoleHelper
	}
	return RoleIdle
}

// nextActive returns the next non-out seat clockwise from seat, or -1 when
// no other seat remains in play.
func (g *Game) nextActive(seat int) int {
	for i := 1; i <= g.cfg.Seats; i++ {
		s := (seat + i) % g.cfg.Seats
		if !g.out[s] {
			return s
		}
	}
	return -1
}

func (g *Game) activeCount() int {
	n := 0
	for _, o := range g.out {
		if !o {
			n++
		}
	}
	return n
}

func indexOfCard(hand []Card, c Card) int {
	for i, h := range hand {
		if h == c {
			return i
		}
	}
	return -1
}

func (g *Game) removeCard(seat, idx int) {
	hand := g.hands[seat]
	g.hands[seat] = append(hand[:idx], hand[idx+1:]...)
}

func (g *Game) checkActing(seat int) error {
	if g.over {
		return ErrGameOver
	}
	if !g.dealt {
		return ErrNotDealt
	}
	if seat < 0 || seat >= g.cfg.Seats {
		return ErrWrongTurn
	}
	if g.out[seat] {
		return ErrSeatOut
	}
	return nil
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// Attack plays an attacking card. The main attacker opens the trick with any
// card; afterwards attacker and helpers may add cards whose rank already
// shows on the table, as long as the defender can still be expected to
// answer them.
func (g *Game) Attack(seat int, c Card) error {
	if err := g.checkActing(seat); err != nil {
		return err
	}
	if seat == g.defender {
		return ErrWrongTurn
	}
	if g.RoleOf(seat) != RoleAttacker && g.RoleOf(seat) != RoleHelper {
		return ErrWrongTurn
	}
	if len(g.Table.Slots) == 0 && seat != g.attacker {
		// Helpers join an ongoing attack; only the attacker opens.
		return ErrWrongTurn
	}
	idx := indexOfCard(g.hands[seat], c)
	if idx == -1 {
		return ErrCardNotInHand
	}
	if len(g.Table.Slots) > 0 && !g.Table.HasRank(c.Rank) {
		return ErrRankNotOnTable
	}
	if len(g.Table.Slots) >= MaxAttacksPerTrick {
		return ErrAttackLimit
	}
	if g.Table.Undefended()+1 > len(g.hands[g.defender]) {
		return ErrDefenderOverloaded
	}

	g.removeCard(seat, idx)
	g.Table.Slots = append(g.Table.Slots, Slot{Attack: c})
	return nil
}

// Defend covers the most recent undefended attack card: same suit and
// strictly higher rank, or trump against a non-trump attack.
func (g *Game) Defend(seat int, c Card) error {
	if err := g.checkActing(seat); err != nil {
		return err
	}
	if seat != g.defender {
		return ErrWrongTurn
	}
	if len(g.Table.Slots) == 0 {
		return ErrEmptyTable
	}
	ti := g.Table.LatestUndefended()
	if ti == -1 {
		return ErrNothingToDefend
	}
	idx := indexOfCard(g.hands[seat], c)
	if idx == -1 {
		return ErrCardNotInHand
	}
	if !c.Beats(g.Table.Slots[ti].Attack, g.trump) {
		return ErrCannotBeat
	}

	g.removeCard(seat, idx)
	g.Table.Slots[ti].Defense = c
	g.Table.Slots[ti].Defended = true
	return nil
}

// Take ends the trick with the defender picking up the entire table. The
// seat clockwise from the defender becomes the new attacker; the attacking
// side draws back up to six in strict rotation order, the defender draws
// nothing.
func (g *Game) Take(seat int) error {
	if err := g.checkActing(seat); err != nil {
		return err
	}
	if seat != g.defender {
		return ErrWrongTurn
	}
	if g.Table.Undefended() == 0 {
		return ErrNothingToTake
	}

	prevA, prevD := g.attacker, g.defender
	g.hands[prevD] = append(g.hands[prevD], g.Table.Cards()...)
	g.Table.Clear()

	g.refill(prevA, prevD, false)
	g.resolveOutcome(prevA)
	if g.over {
		return nil
	}
	g.attacker = g.nextActive(prevD)
	g.defender = g.nextActive(g.attacker)
	return nil
}

// Pass ends the trick with a successful defense: every attack is covered,
// the table moves to the discard, the defender becomes the new attacker and
// draws last during the refill.
func (g *Game) Pass(seat int) error {
	if err := g.checkActing(seat); err != nil {
		return err
	}
	if g.RoleOf(seat) != RoleAttacker && g.RoleOf(seat) != RoleHelper {
		return ErrWrongTurn
	}
	if len(g.Table.Slots) == 0 {
		return ErrEmptyTable
	}
	if g.Table.Undefended() > 0 {
		return ErrTableUndefended
	}

	prevA, prevD := g.attacker, g.defender
	g.discard = append(g.discard, g.Table.Cards()...)
	g.Table.Clear()

	g.refill(prevA, prevD, true)
	g.resolveOutcome(prevA)
	if g.over {
		return nil
	}
	if g.out[prevD] {
		g.attacker = g.nextActive(prevD)
	} else {
		g.attacker = prevD
	}
	g.defender = g.nextActive(g.attacker)
	return nil
}

// refill draws hands back up to HandSize: the main attacker first, then the
// remaining attacking seats in seat order, the defender last or not at all.
// The deck may run out mid-refill; scarcity resolves in this exact order.
func (g *Game) refill(prevA, prevD int, defenderDraws bool) {
	order := make([]int, 0, g.cfg.Seats)
	for i := 0; i < g.cfg.Seats; i++ {
		s := (prevA + i) % g.cfg.Seats
		if s == prevD || g.out[s] {
			continue
		}
		order = append(order, s)
	}
	if defenderDraws && !g.out[prevD] {
		order = append(order, prevD)
	}
	for _, s := range order {
		for len(g.hands[s]) < HandSize {
			c, ok := g.deck.Draw()
			if !ok {
				return
			}
			g.hands[s] = append(g.hands[s], c)
		}
	}
}

// resolveOutcome runs win/loss detection after a trick resolution. It only
// applies once the deck, trump card included, is exhausted: empty hands
// leave play as winners in seat order starting from the trick's attacker,
// and the game ends the instant zero or one seat still holds cards.
func (g *Game) resolveOutcome(start int) {
	if g.deck.Remaining() > 0 {
		return
	}
	for i := 0; i < g.cfg.Seats; i++ {
		s := (start + i) % g.cfg.Seats
		if !g.out[s] && len(g.hands[s]) == 0 {
			g.out[s] = true
			g.winners = append(g.winners, s)
		}
	}
	switch g.activeCount() {
	case 0:
		// Everyone emptied on the same trick: a draw, no durak.
		g.over = true
		g.loser = -1
	case 1:
		for s := 0; s < g.cfg.Seats; s++ {
			if !g.out[s] {
				g.over = true
				g.loser = s
				break
			}
		}
	}
}

// ForfeitSeat removes a seat whose reconnection window expired or who left
// mid-game. Its cards leave play face-down into the discard and rotation
// skips the seat from now on. If the forfeiting seat was attacker or
// defender the open trick aborts to the discard. When a single seat
// remains it wins by forfeit and the forfeiter is recorded as the loser.
func (g *Game) ForfeitSeat(seat int) {
	if g.over || !g.dealt || seat < 0 || seat >= g.cfg.Seats || g.out[seat] {
		return
	}
	g.discard = append(g.discard, g.hands[seat]...)
	g.hands[seat] = nil
	g.out[seat] = true
	g.forfeited[seat] = true

	wasAttacker := seat == g.attacker
	wasDefender := seat == g.defender
	if wasAttacker || wasDefender {
		g.discard = append(g.discard, g.Table.Cards()...)
		g.Table.Clear()
	}

	if g.activeCount() <= 1 {
		g.over = true
		g.loser = seat
		for s := 0; s < g.cfg.Seats; s++ {
			if !g.out[s] {
				g.winners = append(g.winners, s)
				g.out[s] = true
				break
			}
		}
		return
	}

	if wasAttacker {
		g.attacker = g.nextActive(seat)
	}
	if wasAttacker || wasDefender {
		g.defender = g.nextActive(g.attacker)
	}
}

// Forfeited reports whether the seat left by forfeit rather than by
// emptying its hand.
func (g *Game) Forfeited(seat int) bool {
	return seat >= 0 && seat < g.cfg.Seats && g.forfeited[seat]
}

// cardCount sums every card known to the game; the total is invariant for
// the life of a session.
func (g *Game) cardCount() int {
	n := g.deck.Remaining() + len(g.discard) + len(g.Table.Cards())
	for _, h := range g.hands {
		n += len(h)
	}
	return n
}
